package vos

import (
	"io"
	"os"
	"strings"
)

// SessionIO holds the standard streams of a shell session.
type SessionIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

// Streams is a SessionIO over fixed readers and writers.
type Streams struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
	stderr io.WriteCloser
}

var _ SessionIO = (*Streams)(nil)

// NewStreams wraps the given streams, a nil stdin reads as empty and nil
// writers discard their output. Streams that can't be closed get a no-op
// Close.
func NewStreams(stdin io.Reader, stdout, stderr io.Writer) *Streams {
	return &Streams{
		stdin:  readCloser(stdin),
		stdout: writeCloser(stdout),
		stderr: writeCloser(stderr),
	}
}

// DiscardStreams is a session with no input whose output goes nowhere.
func DiscardStreams() *Streams {
	return NewStreams(nil, nil, nil)
}

func (s *Streams) Stdin() io.ReadCloser {
	return s.stdin
}

func (s *Streams) Stdout() io.WriteCloser {
	return s.stdout
}

func (s *Streams) Stderr() io.WriteCloser {
	return s.stderr
}

// TerminalInput returns the session's input when commands can share it with
// the shell. Only a file qualifies: external programs are fed any other
// reader through a pipe and would consume lines the shell hasn't read yet.
// Returns nil otherwise, which commands see as empty input.
func TerminalInput(sio SessionIO) io.Reader {
	if f, ok := sio.Stdin().(*os.File); ok {
		return f
	}
	return nil
}

func readCloser(r io.Reader) io.ReadCloser {
	switch rc := r.(type) {
	case nil:
		return io.NopCloser(strings.NewReader(""))
	case io.ReadCloser:
		return rc
	default:
		return io.NopCloser(r)
	}
}

func writeCloser(w io.Writer) io.WriteCloser {
	switch wc := w.(type) {
	case nil:
		return nopWriteCloser{io.Discard}
	case io.WriteCloser:
		return wc
	default:
		return nopWriteCloser{w}
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
