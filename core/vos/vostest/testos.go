// Package vostest runs builtins against a deterministic in-memory environment.
package vostest

import (
	"bytes"
	"io"
	"strings"

	"github.com/josephlewis42/turtlesh/core/shell"
	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/afero"
)

const (
	// Home is the home and starting directory of test environments.
	Home = "/home/turtle"
)

// NewTestEnv creates an environment over an empty in-memory filesystem with
// only a home directory.
func NewTestEnv() *vos.Env {
	fs := afero.NewMemMapFs()
	fs.MkdirAll(Home, 0755)
	fs.MkdirAll("/tmp", 0777)

	return vos.NewEnvFromList(fs, []string{
		"HOME=" + Home,
		"PWD=" + Home,
		"PATH=/usr/bin:/bin",
		"USER=turtle",
	})
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// Builtin to run.
	Builtin shell.Builtin
	// Process arguments, the first argument should be the process name.
	Argv []string
	// Env to run in, a fresh NewTestEnv if nil.
	Env *vos.Env

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int

	// Setup runs before the builtin, typically to populate the filesystem.
	Setup func(*vos.Env) error
}

// Command creates a Cmd that runs the builtin.
func Command(b shell.Builtin, name string, arg ...string) *Cmd {
	return &Cmd{
		Builtin: b,
		Argv:    append([]string{name}, arg...),
	}
}

// CombinedOutput runs the command and returns stdout and stderr interleaved.
func (c *Cmd) CombinedOutput() ([]byte, error) {
	// stdout, stderr
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	if err := c.Run(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Output runs the command and returns stdout.
func (c *Cmd) Output() ([]byte, error) {
	buf := &bytes.Buffer{}
	c.Stdout = buf

	if err := c.Run(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the command and waits for it to complete.
func (c *Cmd) Run() error {
	if c.Env == nil {
		c.Env = NewTestEnv()
	}
	c.Env.SetStderr(c.Stderr)

	if c.Setup != nil {
		if err := c.Setup(c.Env); err != nil {
			return err
		}
	}

	stdout := c.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stdin := c.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	c.ExitStatus = c.Builtin.Exec(c.Env, c.Argv[1:], stdout, stdin)
	return nil
}

// WriteFiles is a Setup helper that creates files with the given contents,
// relative names are resolved against the working directory.
func WriteFiles(files map[string]string) func(*vos.Env) error {
	return func(env *vos.Env) error {
		for name, contents := range files {
			if err := afero.WriteFile(env.Fs(), name, []byte(contents), 0644); err != nil {
				return err
			}
		}
		return nil
	}
}
