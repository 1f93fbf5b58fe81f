package main

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// startSpinner shows progress on an interactive terminal. The returned
// cleanup stops it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	interactive := !jsonOutput && !verbose && term.IsTerminal(int(os.Stderr.Fd()))
	if interactive {
		s.Start()
	}

	cleanup := func() {
		if interactive {
			s.Stop()
		}
	}

	return s, cleanup
}
