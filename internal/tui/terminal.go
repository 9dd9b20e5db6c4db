// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether w is an interactive terminal. Buffers and
// redirected streams are never interactive, which is how tests and pipelines
// opt out of the spinner and the exit prompt.
func IsInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ReaderIsTerminal reports whether r reads from an interactive terminal.
func ReaderIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
