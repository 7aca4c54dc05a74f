// Package termline toggles a terminal's line discipline between cooked
// (line-buffered, echoing, signal-generating) and raw (character-at-a-time,
// no echo, no CTRL-C/CTRL-Z signal generation) mode, via
// golang.org/x/term. It is a narrow Go rendering of
// C-kern/api/io/terminal/terminal.h's configrawedit_terminal/
// configrestore_terminal pair — perftest's optional interactive progress
// reporter uses it so a live "instances completed" line can redraw in
// place without the terminal echoing keypresses into the middle of it.
package termline

import (
	"golang.org/x/term"
)

// SetRaw switches fd into raw mode and returns a restore function that
// undoes it, mirroring configrawedit_terminal/configrestore_terminal's
// paired lifetime (the caller must call restore before the process exits
// normally, the same obligation the original places on its caller).
func SetRaw(fd int) (restore func() error, err error) {
	prior, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error {
		return term.Restore(fd, prior)
	}, nil
}

// IsTerminal reports whether fd refers to a terminal, mirroring
// is_terminal.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// Size returns the terminal's (columns, rows), mirroring size_terminal.
func Size(fd int) (cols, rows int, err error) {
	return term.GetSize(fd)
}
