// Package shell executes trees of tasks built from parsed command lines.
package shell

import (
	"context"
	"io"
	"log"

	"github.com/josephlewis42/turtlesh/core/logger"
	"github.com/josephlewis42/turtlesh/core/vos"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRelayBuffer is the number of chunks a pipe holds before its
	// writer blocks.
	DefaultRelayBuffer = 64

	// StatusNotFound is returned when a command can't be found.
	StatusNotFound = 127
	// StatusNotExecutable is returned when a command was found but couldn't
	// be started.
	StatusNotExecutable = 126
)

// Task is a node in an executable command tree.
//
// A Task is built once, executed with Exec and then discarded. Exec blocks
// until the task and everything it started in the foreground has finished
// and all of its output was delivered.
type Task interface {
	Exec(ctx context.Context, ec ExecContext) int
	String() string
}

// ExecContext holds the streams and environment a task runs against. It is
// passed by value, so stages of a pipeline can rewire their own streams
// without affecting siblings.
type ExecContext struct {
	Env *vos.Env

	// Stdin is read by the head of a pipeline, nil reads as empty.
	Stdin io.Reader
	// Stdout receives the output of the tail of a pipeline, nil discards.
	Stdout io.Writer

	Runtime *Runtime
}

// Runtime is shared by every task executed in a session.
type Runtime struct {
	// Builtins are looked up before the PATH.
	Builtins *Registry
	// Logger receives internal errors such as failed relays.
	Logger *log.Logger
	// Recorder receives command events, may be nil.
	Recorder logger.Recorder
	// RelayBuffer is the depth of every pipe, DefaultRelayBuffer if unset.
	RelayBuffer int

	bg errgroup.Group
}

// NewRuntime creates a Runtime with a discarding logger.
func NewRuntime(builtins *Registry) *Runtime {
	return &Runtime{
		Builtins:    builtins,
		Logger:      log.New(io.Discard, "", 0),
		RelayBuffer: DefaultRelayBuffer,
	}
}

func (r *Runtime) logf(format string, v ...interface{}) {
	if r == nil || r.Logger == nil {
		return
	}
	r.Logger.Printf(format, v...)
}

func (r *Runtime) record(le *logger.LogEntry) {
	if r == nil || r.Recorder == nil {
		return
	}
	if err := r.Recorder.Record(le); err != nil {
		r.logf("recording %s event: %v", le.Type, err)
	}
}

func (r *Runtime) relayDepth() int {
	if r == nil || r.RelayBuffer <= 0 {
		return DefaultRelayBuffer
	}
	return r.RelayBuffer
}

// Background starts fn without waiting for it.
func (r *Runtime) Background(fn func()) {
	if r == nil {
		go fn()
		return
	}
	r.bg.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every background task started so far has finished.
func (r *Runtime) Wait() {
	_ = r.bg.Wait()
}

// NewExecContext wires a session's environment and terminal streams.
func NewExecContext(rt *Runtime, env *vos.Env, stdin io.Reader, stdout io.Writer) ExecContext {
	return ExecContext{
		Env:     env,
		Stdin:   stdin,
		Stdout:  stdout,
		Runtime: rt,
	}
}

func (ec ExecContext) stdin() io.Reader {
	if ec.Stdin == nil {
		return emptyReader{}
	}
	return ec.Stdin
}

func (ec ExecContext) stdout() io.Writer {
	if ec.Stdout == nil {
		return io.Discard
	}
	return ec.Stdout
}

func (ec ExecContext) stderr() io.Writer {
	if ec.Env == nil {
		return io.Discard
	}
	return ec.Env.Stderr()
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
