package cmd

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isStdoutTTY returns true if stdout is connected to a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// isStdinPipe returns true if stdin is not a terminal.
func isStdinPipe() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// resolveColor determines whether to use color output based on flags and TTY status.
// colorFlag is the --color value: "auto", "always", or "never".
// noColorFlag is the --no-color boolean flag.
func resolveColor(colorFlag string, noColorFlag bool) bool {
	if noColorFlag {
		return false
	}
	switch colorFlag {
	case "always":
		return true
	case "never":
		return false
	default: // "auto"
		return isStdoutTTY()
	}
}

// applyColor sets the process-wide color switch.
func applyColor(colorFlag string, noColorFlag bool) {
	color.NoColor = !resolveColor(colorFlag, noColorFlag)
}
