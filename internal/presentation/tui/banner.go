package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  _____                              `, "#34d399"},
	{` |_   _|__  ___ ___  ___ _ __ __ _   `, "#2dd4bf"},
	{`   | |/ _ \/ __/ __|/ _ \ '__/ _' |  `, "#22d3ee"},
	{`   | |  __/\__ \__ \  __/ | | (_| |  `, "#38bdf8"},
	{`   |_|\___||___/___/\___|_|  \__,_|  `, "#60a5fa"},
}

// PrintBanner writes the Tessera banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
