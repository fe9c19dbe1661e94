package vos

import (
	"io/fs"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(env *Env, file string) error {
	d, err := env.BaseFs().Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories named by
// the PATH environment variable. If file contains a slash, it is tried directly
// and the PATH is not consulted. The result is always an absolute path.
func LookPath(env *Env, file string) (string, error) {
	if strings.Contains(file, "/") {
		abs := env.ResolvePath(file)
		if err := findExecutable(env, abs); err != nil {
			return "", err
		}
		return abs, nil
	}

	for _, dir := range filepath.SplitList(env.Getenv(EnvPath)) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := env.ResolvePath(path.Join(dir, file))
		if err := findExecutable(env, candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}
