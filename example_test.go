package mentor_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/pkg/adapters/scripted"
	"github.com/aretw0/mentor/pkg/domain"
)

// ExampleNew_scripted runs a one-atom session against the offline scripted
// service. The same calls work against the REST client.
func ExampleNew_scripted() {
	mastery := 0.9
	script := scripted.Script{
		SessionID:   "demo",
		ConceptName: "Boiling point",
		Atoms: []scripted.AtomScript{{
			ID:       "boil",
			Name:     "Boiling water",
			Teaching: scripted.TeachingScript{Explanation: "Water boils at 100 degrees at sea level."},
			Questions: []scripted.QuestionScript{{
				Text:    "At what temperature does water boil at sea level?",
				Options: []string{"90", "100", "120"},
				Answer:  1,
			}},
			Completions: []scripted.Completion{{Mastery: &mastery}},
		}},
	}

	tutor, err := mentor.New(scripted.NewService(script))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	sess, err := tutor.Start(ctx, "boiling-point", domain.LevelBeginner)
	if err != nil {
		log.Fatal(err)
	}

	content, err := sess.LoadTeaching(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("teaching:", content.Explanation)

	if err := sess.FinishTeaching(ctx); err != nil {
		log.Fatal(err)
	}
	res, err := sess.SubmitAnswer(ctx, 1, 4*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("correct:", res.Correct)

	if _, err := sess.Continue(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("phase:", sess.Phase())

	s := sess.Summary()
	fmt.Printf("completed %d/%d, mastered %d\n", s.CompletedAtoms, s.TotalAtoms, s.Distribution.Mastered)

	// Output:
	// teaching: Water boils at 100 degrees at sea level.
	// correct: true
	// phase: session_complete
	// completed 1/1, mastered 1
}
