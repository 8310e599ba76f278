package xmodem

import (
	"os"

	"golang.org/x/term"
)

// StdioChannel runs a transfer over the process's stdin/stdout, the way
// the classic sx/rx binaries are invoked from a terminal program. When
// stdin is a terminal it is placed in raw mode for the duration of the
// transfer so control bytes pass through unmangled.
type StdioChannel struct {
	*StreamChannel
	fd       int
	oldState *term.State
}

// NewStdioChannel wraps stdin/stdout in a Channel. Raw mode is entered
// only when stdin is actually a terminal; over a pipe (the usual case when
// spawned by a terminal emulator) no terminal state is touched.
func NewStdioChannel() (*StdioChannel, error) {
	c := &StdioChannel{
		StreamChannel: NewStreamChannel(os.Stdin, os.Stdout),
		fd:            int(os.Stdin.Fd()),
	}

	if term.IsTerminal(c.fd) {
		state, err := term.MakeRaw(c.fd)
		if err != nil {
			return nil, err
		}
		c.oldState = state
	}

	return c, nil
}

// Restore returns the terminal to its previous state. Safe to call when
// raw mode was never entered.
func (c *StdioChannel) Restore() error {
	if c.oldState == nil {
		return nil
	}
	err := term.Restore(c.fd, c.oldState)
	c.oldState = nil
	return err
}
