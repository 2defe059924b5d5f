/*
Package mentor orchestrates adaptive learning sessions against a remote learning-analytics service.

A concept is taught as an ordered list of atoms. For each atom the learner reads
teaching content, answers a question set, and the service scores the attempt.
The service then returns a next-action code that Mentor turns into the next
step: advance to the following atom, force a review of the same atom, or ask
the learner to choose.

# Concept

Mentor keeps the session state machine on the client. The remote service owns
scoring and pacing decisions; Mentor owns ordering, single-flight request
handling and the pacing history. Adapters plug the same session into a
terminal, an HTTP API or an MCP tool server.

# Key Features

  - One request per action: a second trigger while a request is in flight is ignored (domain.ErrBusy).
  - Stale responses are discarded: every request is tagged with the atom and phase it was issued for.
  - Forced review cannot be bypassed: a review_current code always sends the learner back to teaching.
  - Completion wins: a response flagged all_completed ends the session whatever its code.
  - Snapshots: sessions can be persisted and resumed on another replica.

# Usage

	package main

	import (
		"context"
		"log"
		"time"

		"github.com/aretw0/mentor"
		"github.com/aretw0/mentor/pkg/adapters/rest"
		"github.com/aretw0/mentor/pkg/domain"
		"github.com/aretw0/mentor/pkg/ports"
	)

	func main() {
		client, err := rest.NewClient("https://learning.example.com", rest.WithTokenSource(ports.StaticToken("secret")))
		if err != nil {
			log.Fatal(err)
		}
		tutor, err := mentor.New(client)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		sess, err := tutor.Start(ctx, "fractions", domain.LevelBeginner)
		if err != nil {
			log.Fatal(err)
		}

		content, err := sess.LoadTeaching(ctx)
		if err != nil {
			log.Fatal(err)
		}
		log.Println(content.Explanation)

		if err := sess.FinishTeaching(ctx); err != nil {
			log.Fatal(err)
		}
		if _, err := sess.SubmitAnswer(ctx, 0, 12*time.Second); err != nil {
			log.Fatal(err)
		}
		directive, err := sess.Continue(ctx)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("next:", directive.Kind, "phase:", sess.Phase())
	}
*/
package mentor
