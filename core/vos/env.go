package vos

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvPWD  = "PWD"
	EnvPath = "PATH"
)

// VEnv is the variable half of an environment.
type VEnv interface {
	// Unsetenv unsets a single environment variable.
	Unsetenv(key string)

	// Setenv sets the value of the environment variable named by the key.
	Setenv(key, value string)

	// LookupEnv retrieves the value of the environment variable named by the key.
	// If the variable is present in the environment the value (which may be
	// empty) is returned and the boolean is true. Otherwise the returned value
	// will be empty and the boolean will be false.
	LookupEnv(key string) (string, bool)

	// Getenv retrieves the value of the environment variable named by the key.
	// It returns the value, which will be empty if the variable is not present.
	// To distinguish between an empty value and an unset value, use LookupEnv.
	Getenv(key string) string

	// Environ returns a copy of strings representing the environment, in the
	// form "key=value".
	Environ() []string
}

// EnvironFetcher is anything that can list variables in "key=value" form.
type EnvironFetcher interface {
	Environ() []string
}

// EnvList adapts a literal list of "key=value" strings.
type EnvList []string

// Environ implements EnvironFetcher.Environ.
func (e EnvList) Environ() []string {
	return []string(e)
}

// CopyEnv copies all the environment variables from src to dst.
func CopyEnv(dst VEnv, src EnvironFetcher) {
	for _, e := range src.Environ() {
		key, value := splitEnv(e)
		dst.Setenv(key, value)
	}
}

func splitEnv(e string) (key, value string) {
	split := strings.SplitN(e, "=", 2)
	key = split[0]
	if len(split) > 1 {
		value = split[1]
	}
	return key, value
}

// Env is the shared, mutable shell environment: an ordered variable store, a
// current directory (kept in $PWD), a filesystem that resolves paths against
// that directory and a diagnostic stream.
//
// Every method takes the lock for the duration of the call only. Background
// pipelines that assign variables concurrently race with each other; the last
// write wins.
type Env struct {
	rw   sync.RWMutex
	keys []string
	vars map[string]string

	base   afero.Fs
	fs     afero.Fs
	stderr io.Writer
}

var _ VEnv = (*Env)(nil)

// NewEnv creates an empty environment over the given filesystem.
func NewEnv(base afero.Fs) *Env {
	if base == nil {
		base = afero.NewMemMapFs()
	}
	e := &Env{
		vars:   make(map[string]string),
		base:   base,
		stderr: os.Stderr,
	}
	e.fs = NewPathMappingFs(base, func(op FsOp, name string) (string, error) {
		return e.ResolvePath(name), nil
	})
	return e
}

// NewEnvFromList creates a new environment with a copy of the variables in
// environ, given in "key=value" form.
func NewEnvFromList(base afero.Fs, environ []string) *Env {
	out := NewEnv(base)
	CopyEnv(out, EnvList(environ))
	return out
}

// NewOSEnv creates an environment seeded from the running process: its
// variables, working directory and home directory on the real filesystem.
func NewOSEnv() (*Env, error) {
	env := NewEnvFromList(afero.NewOsFs(), os.Environ())

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	env.Setenv(EnvPWD, wd)

	if _, ok := env.LookupEnv(EnvHome); !ok {
		if home, err := os.UserHomeDir(); err == nil {
			env.Setenv(EnvHome, home)
		}
	}

	return env, nil
}

// Unsetenv implements VEnv.Unsetenv.
func (e *Env) Unsetenv(key string) {
	e.rw.Lock()
	defer e.rw.Unlock()

	if _, ok := e.vars[key]; !ok {
		return
	}
	delete(e.vars, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Setenv implements VEnv.Setenv. Overwriting a variable keeps its position.
func (e *Env) Setenv(key, value string) {
	e.rw.Lock()
	defer e.rw.Unlock()

	if _, ok := e.vars[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.vars[key] = value
}

// LookupEnv implements VEnv.LookupEnv.
func (e *Env) LookupEnv(key string) (string, bool) {
	e.rw.RLock()
	defer e.rw.RUnlock()

	val, ok := e.vars[key]
	return val, ok
}

// Getenv implements VEnv.Getenv.
func (e *Env) Getenv(key string) string {
	val, _ := e.LookupEnv(key)
	return val
}

// Environ implements VEnv.Environ, variables are listed in the order they were
// first set.
func (e *Env) Environ() []string {
	e.rw.RLock()
	defer e.rw.RUnlock()

	env := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		env = append(env, fmt.Sprintf("%s=%s", k, e.vars[k]))
	}

	return env
}

// Clearenv deletes all environment variables.
func (e *Env) Clearenv() {
	e.rw.Lock()
	defer e.rw.Unlock()

	e.keys = nil
	e.vars = make(map[string]string)
}

// Substitute replaces every $NAME reference in text with the variable's value,
// unset variables become the empty string. A name is a run of letters, digits
// and underscores. A '$' not followed by a name character is kept, as is an
// escaped "\$".
func (e *Env) Substitute(text string) string {
	if !strings.ContainsRune(text, '$') {
		return text
	}

	var out strings.Builder
	for i := 0; i < len(text); {
		switch {
		case text[i] == '\\' && i+1 < len(text) && text[i+1] == '$':
			out.WriteString(`\$`)
			i += 2
			continue
		case text[i] != '$':
			out.WriteByte(text[i])
			i++
			continue
		}

		end := i + 1
		for end < len(text) {
			r, size := utf8.DecodeRuneInString(text[end:])
			if !IsNameRune(r) {
				break
			}
			end += size
		}

		if end == i+1 {
			out.WriteByte('$')
		} else {
			out.WriteString(e.Getenv(text[i+1 : end]))
		}
		i = end
	}

	return out.String()
}

// IsNameRune reports whether r may appear in a variable name.
func IsNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsName reports whether s is a valid variable name.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsNameRune(r) {
			return false
		}
	}
	return true
}

// Getwd returns the current directory, "/" if $PWD was never set.
func (e *Env) Getwd() string {
	if wd := e.Getenv(EnvPWD); wd != "" {
		return wd
	}
	return "/"
}

// Chdir changes the current directory. The target must be an existing
// directory; symbolic links in it are resolved.
func (e *Env) Chdir(dir string) error {
	target := e.ResolvePath(dir)

	stat, err := e.base.Stat(target)
	switch {
	case err != nil:
		return fmt.Errorf("%s: %w", dir, err)
	case !stat.IsDir():
		return fmt.Errorf("%s: Not a directory", dir)
	}

	real, err := realpathOf(e.base, target)
	if err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}
	e.Setenv(EnvPWD, real)
	return nil
}

// ResolvePath converts a path to an absolute, cleaned one. A leading "~"
// expands to $HOME and relative paths are joined to the current directory.
func (e *Env) ResolvePath(name string) string {
	switch {
	case name == "~":
		name = e.Getenv(EnvHome)
	case strings.HasPrefix(name, "~/"):
		name = path.Join(e.Getenv(EnvHome), name[2:])
	}

	if !path.IsAbs(name) {
		name = path.Join(e.Getwd(), name)
	}

	return path.Clean(name)
}

// Fs returns the environment's filesystem, all paths given to it are passed
// through ResolvePath first.
func (e *Env) Fs() afero.Fs {
	return e.fs
}

// BaseFs returns the filesystem without path resolution.
func (e *Env) BaseFs() afero.Fs {
	return e.base
}

// Stderr is the stream diagnostics are written to.
func (e *Env) Stderr() io.Writer {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.stderr
}

// SetStderr replaces the diagnostic stream, nil discards diagnostics.
func (e *Env) SetStderr(w io.Writer) {
	if w == nil {
		w = io.Discard
	}

	e.rw.Lock()
	defer e.rw.Unlock()
	e.stderr = w
}
