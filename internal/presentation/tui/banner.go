package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner with the version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`   __ _ ___ _   _ _ __   ___ ___  ___   __ _ _ __  `, "#38bdf8"},
		{`  / _' / __| | | | '_ \ / __/ __|/ _ \ / _' | '_ \ `, "#22d3ee"},
		{` | (_| \__ \ |_| | | | | (__\__ \ (_) | (_| | |_) |`, "#2dd4bf"},
		{`  \__,_|___/\__, |_| |_|\___|___/\___/ \__,_| .__/ `, "#34d399"},
		{`            |___/                           |_|    `, "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", out.String("v"+version).Faint())
}
