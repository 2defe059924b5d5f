/*
Package ports defines the driven ports (interfaces) of the mentor orchestrator.

These interfaces decouple the session logic from external implementations, allowing
the orchestrator to run against the remote learning-analytics service, a scripted
offline service, and various snapshot stores.

# Key Interfaces

  - LearningService: the remote collaborator that owns scoring and pacing.
  - TokenSource: the external auth collaborator attaching bearer tokens.
  - SnapshotStore: persists session snapshots for the server adapters.
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
