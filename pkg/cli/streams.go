package cli

import (
	"io"
	"os"
)

// IOStreams are the output streams of a command tree.
type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

// NewDefaultIOStreams returns streams writing to os.Stdout and os.Stderr.
func NewDefaultIOStreams() *IOStreams {
	return &IOStreams{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}
