package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` __  __            _`, "#34d399"},
	{`|  \/  | ___ _ __ | |_ ___  _ __`, "#2dd4bf"},
	{`| |\/| |/ _ \ '_ \| __/ _ \| '__|`, "#22d3ee"},
	{`| |  | |  __/ | | | || (_) | |`, "#38bdf8"},
	{`|_|  |_|\___|_| |_|\__\___/|_|`, "#60a5fa"},
}

// PrintBanner writes the Mentor banner and version to w using the colour
// profile of the terminal.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).Profile
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
