// Package ttylog records and replays the terminal streams of a session.
package ttylog

import (
	"io"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/josephlewis42/turtlesh/core/vos"
)

var (
	crlf = regexp.MustCompile(`\r?\n`)
)

// FD identifies the stream an entry was captured from.
type FD int

const (
	FDStdin FD = iota
	FDStdout
	FDStderr
)

func (fd FD) String() string {
	switch fd {
	case FDStdin:
		return "stdin"
	case FDStdout:
		return "stdout"
	case FDStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Entry is a single captured chunk of I/O.
type Entry struct {
	TimestampMicros int64
	FD              FD
	Data            []byte
	// Close is set when the stream was closed, Data is empty.
	Close bool
}

// LogSink receives log events.
type LogSink func(e *Entry) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if the source
	// has no more log entries.
	Next() (*Entry, error)
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prevTimeMicros int64

	return func(e *Entry) error {
		once.Do(func() {
			prevTimeMicros = e.TimestampMicros
		})

		delta := e.TimestampMicros - prevTimeMicros
		prevTimeMicros = e.TimestampMicros

		if maxSleep > 0 && delta > 0 {
			sleepDuration := time.Duration(delta) * time.Microsecond
			if sleepDuration > maxSleep {
				sleepDuration = maxSleep
			}
			time.Sleep(sleepDuration)
		}

		return next(e)
	}
}

// NewLineEndingAdapter rewrites bare \n to \r\n. Output captured from a
// terminal not in raw mode would otherwise creep across the screen on
// playback because the cursor is never returned.
func NewLineEndingAdapter(next LogSink) LogSink {
	return func(e *Entry) error {
		if !e.Close {
			e.Data = crlf.ReplaceAll(e.Data, []byte("\r\n"))
		}

		return next(e)
	}
}

// NewClientOutput writes stdout and stderr to the given writer
func NewClientOutput(w io.Writer) LogSink {
	return func(e *Entry) error {
		if e.Close || e.FD == FDStdin {
			return nil
		}

		_, err := w.Write(e.Data)
		return err
	}
}

// Replay reads a stream of events to a callback.
func Replay(recording LogSource, callback LogSink) error {
	for {
		e, err := recording.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := callback(e); err != nil {
			return err
		}
	}
}

// Recorder wraps the streams of a session and copies everything that passes
// through them to a LogSink.
type Recorder struct {
	*vos.Streams
	mutex  sync.Mutex
	output LogSink

	// Now is the clock used to timestamp entries, time.Now if nil.
	Now func() time.Time
}

var _ vos.SessionIO = (*Recorder)(nil)

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recorder) emit(e *Entry) {
	r.mutex.Lock()
	err := r.output(e)
	r.mutex.Unlock()

	if err != nil {
		log.Print(err)
	}
}

func (r *Recorder) recordIO(fd FD, p []byte, dest func([]byte) (int, error)) (int, error) {
	eventTime := r.now()
	amount, err := dest(p)
	if amount > 0 {
		data := make([]byte, amount)
		copy(data, p[:amount])

		r.emit(&Entry{
			TimestampMicros: eventTime.UnixNano() / int64(time.Microsecond),
			FD:              fd,
			Data:            data,
		})
	}
	return amount, err
}

func (r *Recorder) recordClose(fd FD, closer func() error) error {
	r.emit(&Entry{
		TimestampMicros: r.now().UnixNano() / int64(time.Microsecond),
		FD:              fd,
		Close:           true,
	})
	return closer()
}

type recorderReadCloser struct {
	r       *Recorder
	fd      FD
	wrapped io.ReadCloser
}

var _ io.ReadCloser = (*recorderReadCloser)(nil)

func (rc *recorderReadCloser) Read(p []byte) (int, error) {
	return rc.r.recordIO(rc.fd, p, rc.wrapped.Read)
}

func (rc *recorderReadCloser) Close() error {
	return rc.r.recordClose(rc.fd, rc.wrapped.Close)
}

type recorderWriteCloser struct {
	r       *Recorder
	fd      FD
	wrapped io.WriteCloser
}

var _ io.WriteCloser = (*recorderWriteCloser)(nil)

func (rc *recorderWriteCloser) Write(p []byte) (int, error) {
	return rc.r.recordIO(rc.fd, p, rc.wrapped.Write)
}

func (rc *recorderWriteCloser) Close() error {
	return rc.r.recordClose(rc.fd, rc.wrapped.Close)
}

// NewRecorder creates a logger that forwards all events to output.
func NewRecorder(toWrap vos.SessionIO, output LogSink) *Recorder {
	recorder := &Recorder{
		output: output,
	}

	recorder.Streams = vos.NewStreams(
		&recorderReadCloser{fd: FDStdin, r: recorder, wrapped: toWrap.Stdin()},
		&recorderWriteCloser{fd: FDStdout, r: recorder, wrapped: toWrap.Stdout()},
		&recorderWriteCloser{fd: FDStderr, r: recorder, wrapped: toWrap.Stderr()},
	)

	return recorder
}
