/*
Package domain contains the core domain models of the mentor learning-session orchestrator.

It defines the entities a concept session is made of, the closed vocabulary the
learning-analytics service uses to steer the session, and the read models the
adapters render. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Session: one concept-learning attempt, owning an ordered list of Atoms.
  - Atom: the smallest teachable unit, carrying its own phase and mastery score.
  - NextActionCode: the server instruction issued after an atom completes.
  - Directive: the outcome of resolving a NextActionCode (advance, review, prompt).
  - PacingRecord: one append-only entry per atom completion.
  - Snapshot: the serialisable state of a running session.
*/
package domain
