package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the agentcore banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{`   __ _  __ _  ___ _ __ | |_ ___ ___  _ __ ___ `, "#818cf8"},
		{`  / _' |/ _' |/ _ \ '_ \| __/ __/ _ \| '__/ _ \`, "#a78bfa"},
		{` | (_| | (_| |  __/ | | | || (_| (_) | | |  __/`, "#c084fc"},
		{`  \__,_|\__, |\___|_| |_|\__\___\___/|_|  \___|`, "#e879f9"},
		{`        |___/                                  `, "#f472b6"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
