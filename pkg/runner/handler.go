package runner

import (
	"context"

	"github.com/aretw0/mentor/pkg/domain"
)

// IOHandler defines the strategy for interacting with the learner.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the current session view.
	Output(ctx context.Context, view domain.View) error

	// Input reads one line from the learner.
	// It returns io.EOF when the input is exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (errors, directive notices).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms markdown before it is printed.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// PacingStyler decorates text according to a pacing band, e.g. with colour.
type PacingStyler func(band domain.PacingBand, text string) string
