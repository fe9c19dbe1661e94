package vos

import (
	"os"
	"time"

	"github.com/josephlewis42/turtlesh/third_party/realpath"
	"github.com/spf13/afero"
)

// FsOp is a textual description of the filesystem operation.
type FsOp = string

const (
	FsOpChtimes  FsOp = "chtimes"
	FsOpSymlink  FsOp = "symlink"
	FsOpChmod    FsOp = "chmod"
	FsOpChown    FsOp = "chown"
	FsOpStat     FsOp = "stat"
	FsOpRename   FsOp = "rename"
	FsOpRemove   FsOp = "remove"
	FsOpOpen     FsOp = "open"
	FsOpMkdir    FsOp = "mkdir"
	FsOpCreate   FsOp = "create"
	FsOpLstat    FsOp = "lstat"
	FsOpReadlink FsOp = "readlink"
)

// FileMapper rewrites the path an operation is applied to.
type FileMapper func(op FsOp, name string) (path string, err error)

// PathMappingFs maps all paths on a filesystem via callback to another path.
// Names reported by opened files are left as the base filesystem sees them,
// so relative opens still report their absolute location.
type PathMappingFs struct {
	BaseFs afero.Fs
	Mapper FileMapper
}

var _ afero.Lstater = (*PathMappingFs)(nil)
var _ afero.LinkReader = (*PathMappingFs)(nil)
var _ afero.Linker = (*PathMappingFs)(nil)

// NewPathMappingFs wraps base so every path goes through mapper.
func NewPathMappingFs(base afero.Fs, mapper FileMapper) afero.Fs {
	return &PathMappingFs{BaseFs: base, Mapper: mapper}
}

func (b *PathMappingFs) mapPath(op FsOp, name string) (string, error) {
	mapped, err := b.Mapper(op, name)
	if err != nil {
		return "", &os.PathError{Op: op, Path: name, Err: err}
	}
	return mapped, nil
}

func (b *PathMappingFs) Name() string {
	return "PathMappingFs"
}

func (b *PathMappingFs) Chtimes(name string, atime, mtime time.Time) error {
	name, err := b.mapPath(FsOpChtimes, name)
	if err != nil {
		return err
	}
	return b.BaseFs.Chtimes(name, atime, mtime)
}

func (b *PathMappingFs) Chmod(name string, mode os.FileMode) error {
	name, err := b.mapPath(FsOpChmod, name)
	if err != nil {
		return err
	}
	return b.BaseFs.Chmod(name, mode)
}

func (b *PathMappingFs) Chown(name string, uid, gid int) error {
	name, err := b.mapPath(FsOpChown, name)
	if err != nil {
		return err
	}
	return b.BaseFs.Chown(name, uid, gid)
}

func (b *PathMappingFs) Stat(name string) (os.FileInfo, error) {
	name, err := b.mapPath(FsOpStat, name)
	if err != nil {
		return nil, err
	}
	return b.BaseFs.Stat(name)
}

func (b *PathMappingFs) Rename(oldname, newname string) error {
	oldname, err := b.mapPath(FsOpRename, oldname)
	if err != nil {
		return err
	}
	newname, err = b.mapPath(FsOpRename, newname)
	if err != nil {
		return err
	}
	return b.BaseFs.Rename(oldname, newname)
}

func (b *PathMappingFs) RemoveAll(name string) error {
	name, err := b.mapPath(FsOpRemove, name)
	if err != nil {
		return err
	}
	return b.BaseFs.RemoveAll(name)
}

func (b *PathMappingFs) Remove(name string) error {
	name, err := b.mapPath(FsOpRemove, name)
	if err != nil {
		return err
	}
	return b.BaseFs.Remove(name)
}

func (b *PathMappingFs) OpenFile(name string, flag int, mode os.FileMode) (afero.File, error) {
	name, err := b.mapPath(FsOpOpen, name)
	if err != nil {
		return nil, err
	}
	return b.BaseFs.OpenFile(name, flag, mode)
}

func (b *PathMappingFs) Open(name string) (afero.File, error) {
	name, err := b.mapPath(FsOpOpen, name)
	if err != nil {
		return nil, err
	}
	return b.BaseFs.Open(name)
}

func (b *PathMappingFs) Mkdir(name string, mode os.FileMode) error {
	name, err := b.mapPath(FsOpMkdir, name)
	if err != nil {
		return err
	}
	return b.BaseFs.Mkdir(name, mode)
}

func (b *PathMappingFs) MkdirAll(name string, mode os.FileMode) error {
	name, err := b.mapPath(FsOpMkdir, name)
	if err != nil {
		return err
	}
	return b.BaseFs.MkdirAll(name, mode)
}

func (b *PathMappingFs) Create(name string) (afero.File, error) {
	name, err := b.mapPath(FsOpCreate, name)
	if err != nil {
		return nil, err
	}
	return b.BaseFs.Create(name)
}

func (b *PathMappingFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	name, err := b.mapPath(FsOpLstat, name)
	if err != nil {
		return nil, false, err
	}
	if lstater, ok := b.BaseFs.(afero.Lstater); ok {
		return lstater.LstatIfPossible(name)
	}
	fi, err := b.BaseFs.Stat(name)
	return fi, false, err
}

func (b *PathMappingFs) SymlinkIfPossible(oldname, newname string) error {
	// Link targets are stored verbatim, only the link itself is mapped.
	newname, err := b.mapPath(FsOpSymlink, newname)
	if err != nil {
		return err
	}
	if linker, ok := b.BaseFs.(afero.Linker); ok {
		return linker.SymlinkIfPossible(oldname, newname)
	}
	return &os.LinkError{Op: FsOpSymlink, Old: oldname, New: newname, Err: afero.ErrNoSymlink}
}

func (b *PathMappingFs) ReadlinkIfPossible(name string) (string, error) {
	name, err := b.mapPath(FsOpReadlink, name)
	if err != nil {
		return "", err
	}
	if reader, ok := b.BaseFs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: FsOpReadlink, Path: name, Err: afero.ErrNoReadlink}
}

// realpathOs bridges an afero filesystem to the interface realpath expects.
// Filesystems without link support are treated as having no links at all.
type realpathOs struct {
	fs afero.Fs
}

var _ realpath.OS = (*realpathOs)(nil)

func (r *realpathOs) Getwd() (string, error) {
	return "/", nil
}

func (r *realpathOs) Lstat(name string) (os.FileInfo, error) {
	if lstater, ok := r.fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(name)
		return fi, err
	}
	return r.fs.Stat(name)
}

func (r *realpathOs) Readlink(name string) (string, error) {
	if reader, ok := r.fs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: FsOpReadlink, Path: name, Err: afero.ErrNoReadlink}
}

// realpathOf resolves every symbolic link in the absolute path name.
func realpathOf(fs afero.Fs, name string) (string, error) {
	return realpath.Realpath(&realpathOs{fs: fs}, name)
}
