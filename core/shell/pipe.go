package shell

import (
	"errors"
	"io"
	"sync"
)

// errConsumerDone is used to close a pipe whose reader finished before its
// writer did.
var errConsumerDone = errors.New("consumer finished")

// pipe is a bounded, in-memory FIFO of byte chunks. Unlike io.Pipe a write
// returns as soon as the chunk is queued, so producers can run ahead of their
// consumer by up to depth chunks.
type pipe struct {
	ch   chan []byte
	done chan struct{}

	wmu     sync.Mutex
	wclosed bool
	werr    error

	doneOnce sync.Once
	rerr     error
}

type pipeReader struct {
	p   *pipe
	buf []byte
}

type pipeWriter struct {
	p *pipe
}

func newPipe(depth int) (*pipeReader, *pipeWriter) {
	if depth < 1 {
		depth = 1
	}
	p := &pipe{
		ch:   make(chan []byte, depth),
		done: make(chan struct{}),
	}
	return &pipeReader{p: p}, &pipeWriter{p: p}
}

// Read implements io.Reader. It returns io.EOF once the writer is closed and
// every queued chunk was consumed.
func (r *pipeReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	if len(r.buf) == 0 {
		select {
		case chunk, ok := <-r.p.ch:
			if !ok {
				return 0, r.p.werr
			}
			r.buf = chunk
		case <-r.p.done:
			return 0, io.ErrClosedPipe
		}
	}

	n := copy(b, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Close implements io.Closer.
func (r *pipeReader) Close() error {
	return r.CloseWithError(nil)
}

// CloseWithError stops the pipe, pending and future writes fail with err or
// io.ErrClosedPipe if err is nil.
func (r *pipeReader) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	r.p.doneOnce.Do(func() {
		r.p.rerr = err
		close(r.p.done)
	})
	return nil
}

// Write implements io.Writer. The data is copied, so callers may reuse b.
func (w *pipeWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	w.p.wmu.Lock()
	defer w.p.wmu.Unlock()

	if w.p.wclosed {
		return 0, io.ErrClosedPipe
	}

	chunk := make([]byte, len(b))
	copy(chunk, b)

	select {
	case <-w.p.done:
		return 0, w.p.rerr
	default:
	}

	select {
	case w.p.ch <- chunk:
		return len(b), nil
	case <-w.p.done:
		return 0, w.p.rerr
	}
}

// Close implements io.Closer, it's safe to call more than once.
func (w *pipeWriter) Close() error {
	return w.CloseWithError(nil)
}

// CloseWithError ends the stream, the reader sees err after draining queued
// chunks, or io.EOF if err is nil.
func (w *pipeWriter) CloseWithError(err error) error {
	if err == nil {
		err = io.EOF
	}

	w.p.wmu.Lock()
	defer w.p.wmu.Unlock()

	if !w.p.wclosed {
		w.p.wclosed = true
		w.p.werr = err
		close(w.p.ch)
	}
	return nil
}

// relay copies src into sink on its own goroutine until src reaches end of
// stream. The returned channel is closed once the relay finished. Errors are
// logged and end the relay; the source is then closed so a blocked producer is
// released. If sink is the writing end of a pipe it is closed at the end.
func relay(src *pipeReader, sink io.Writer, rt *Runtime) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := io.Copy(sink, src); err != nil {
			if !errors.Is(err, errConsumerDone) {
				rt.logf("relay: %v", err)
			}
			src.CloseWithError(err)
		}

		if pw, ok := sink.(*pipeWriter); ok {
			pw.Close()
		}
	}()

	return done
}
