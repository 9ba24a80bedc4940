package cmd

import (
	"os"

	"golang.org/x/term"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// isTTY reports whether stdout is an interactive terminal, the one thing
// that decides whether WriteReport/EditPlan summaries get colored at all.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorize(code, s string) string {
	if !isTTY() {
		return s
	}
	return code + s + ansiReset
}
