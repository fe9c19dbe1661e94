package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// targetPath returns where src lands when copied or moved to dst, a
// directory destination keeps the source's base name.
func targetPath(fsys afero.Fs, src, dst string, multiple bool) (string, error) {
	isDir, err := afero.IsDir(fsys, dst)
	switch {
	case err == nil && isDir:
		return path.Join(dst, path.Base(src)), nil
	case multiple:
		return "", fmt.Errorf("target %q is not a directory", dst)
	default:
		return dst, nil
	}
}

func copyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return fmt.Errorf("-r not specified; omitting directory %q", src)
	}

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Cp implements a limited POSIX cp command, directories aren't copied.
func Cp(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "cp SOURCE... DEST",
		Short: "Copy files.",
	}

	return cmd.RunE(p, func() error {
		return transfer(p, cmd, copyFile)
	})
}

// Mv implements a POSIX mv command.
func Mv(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "mv SOURCE... DEST",
		Short: "Move or rename files.",
	}

	return cmd.RunE(p, func() error {
		return transfer(p, cmd, func(fsys afero.Fs, src, dst string) error {
			return fsys.Rename(src, dst)
		})
	})
}

func transfer(p *Proc, cmd *SimpleCommand, op func(fsys afero.Fs, src, dst string) error) error {
	args := cmd.Flags().Args()
	if len(args) < 2 {
		return errors.New("missing file operand")
	}

	fsys := p.Fs()
	sources, dst := args[:len(args)-1], args[len(args)-1]

	var failed error
	for _, src := range sources {
		target, err := targetPath(fsys, src, dst, len(sources) > 1)
		if err != nil {
			return err
		}
		if err := op(fsys, src, target); err != nil {
			cmd.LogProgramError(p, err)
			failed = errors.New("some files could not be processed")
		}
	}
	return failed
}

var _ ProcFunc = Cp
var _ ProcFunc = Mv
