// Package storagefs provides the Storage capability the core requires:
// atomic append, crash-safe whole-file rewrite, a file-existence check,
// and recovery from a partially-written temporary file. It also ships a fault-injecting test double so crash-recovery
// invariants can be exercised without touching a real disk.
package storagefs

import (
	"io"
	"os"
)

// File mirrors os.File's surface enough for the operations storagefs
// needs: read, write, seek, sync, stat. A Real implementation is a thin
// wrapper over *os.File; a test double can substitute its own handle.
type File interface {
	io.ReadWriteCloser
	io.Seeker
	Stat() (os.FileInfo, error)
	Sync() error
}

// FS is the minimal filesystem surface storagefs builds on.
type FS interface {
	Open(path string) (File, error)
	OpenFile(path string, flag int, perm os.FileMode) (File, error)
	ReadFile(path string) ([]byte, error)
	MkdirAll(path string, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	Exists(path string) (bool, error)
	Remove(path string) error
	Rename(oldpath, newpath string) error
}

var _ File = (*os.File)(nil)
