package cmd

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/turtlesh/commands"
	"github.com/josephlewis42/turtlesh/core/config"
	"github.com/josephlewis42/turtlesh/core/logger"
	"github.com/josephlewis42/turtlesh/core/shell"
	"github.com/josephlewis42/turtlesh/core/ttylog"
	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/cobra"
)

// session holds everything a single shell invocation runs against.
type session struct {
	cfg     *config.Configuration
	env     *vos.Env
	runtime *shell.Runtime
	io      vos.SessionIO

	closers []io.Closer
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	s.env, err = cfg.NewEnv()
	if err != nil {
		return nil, err
	}

	s.runtime = shell.NewRuntime(commands.Builtins())
	s.runtime.Logger = log.New(cmd.ErrOrStderr(), "[turtlesh] ", 0)
	s.runtime.RelayBuffer = cfg.RelayBuffer

	var events *logger.SessionLogger
	eventLog, err := cfg.OpenEventLog()
	if err != nil {
		return nil, err
	}
	if eventLog != nil {
		s.closers = append(s.closers, eventLog)
		events = logger.NewJSONLinesLogRecorder(eventLog).NewSession()
		s.runtime.Recorder = events
		events.Record(&logger.LogEntry{Type: logger.EventSessionStart})
	}

	s.io = vos.NewStreams(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if recordPath != "" {
		recording, err := s.createRecording(recordPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, recording)
		s.io = ttylog.NewRecorder(s.io, ttylog.NewLogSink(recordPath, recording))

		if events != nil {
			events.Record(&logger.LogEntry{Type: logger.EventTTYLog, Name: recording.Name()})
		}
	}

	s.env.SetStderr(s.io.Stderr())

	ok = true
	return s, nil
}

type recordingFile interface {
	io.WriteCloser
	Name() string
}

// createRecording puts bare names in the config's recordings directory,
// anything with a directory component is created as given.
func (s *session) createRecording(name string) (recordingFile, error) {
	if filepath.Base(name) == name {
		return s.cfg.CreateRecording(name)
	}
	return os.Create(name)
}

// ExecContext wires the session's streams to a task.
func (s *session) ExecContext(stdin io.Reader) shell.ExecContext {
	return shell.NewExecContext(s.runtime, s.env, stdin, s.io.Stdout())
}

// Close waits for background tasks then releases the session's files.
func (s *session) Close() error {
	if s.runtime != nil {
		s.runtime.Wait()
	}

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
