package tui

import (
	"os"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var pacingColors = map[domain.PacingBand]string{
	domain.PacingSharpSlowdown: "#f87171",
	domain.PacingSlowDown:      "#fbbf24",
	domain.PacingStay:          "#60a5fa",
	domain.PacingSpeedUp:       "#34d399",
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// PacingStyle colours pacing labels for the given profile.
// The Ascii profile leaves text untouched.
func PacingStyle(p termenv.Profile) func(domain.PacingBand, string) string {
	return func(band domain.PacingBand, text string) string {
		color, ok := pacingColors[band]
		if !ok || p == termenv.Ascii {
			return text
		}
		s := termenv.String(text).Foreground(p.Color(color))
		if band == domain.PacingSharpSlowdown {
			s = s.Bold()
		}
		return s.String()
	}
}
