package storagefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/natefinch/atomic"
)

// ErrDirSync indicates the parent directory could not be synced after the
// crash-safe rewrite completed. When returned, the new file is durably in
// place but the directory entry pointing at it may not be.
var ErrDirSync = errors.New("storagefs: dir sync")

// atomicRealWrite performs the crash-safe whole-file rewrite
// against the real filesystem, using natefinch/atomic for the
// temp-write-fsync-rename core plus the surrounding directory fsyncs.
func atomicRealWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := fsyncDirReal(dir); err != nil {
		return err
	}

	if existed, err := (Real{}).Exists(path); err != nil {
		return fmt.Errorf("storagefs: checking existing file: %w", err)
	} else if existed {
		if err := fsyncFileReal(path); err != nil {
			return fmt.Errorf("storagefs: fsync existing file: %w", err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storagefs: atomic write: %w", err)
	}

	if err := fsyncDirReal(dir); err != nil {
		return errors.Join(ErrDirSync, err)
	}

	return nil
}

func fsyncDirReal(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		// Directory fsync is unsupported on some platforms/filesystems;
		// treat an open failure on the directory itself as non-fatal.
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storagefs: open dir %q: %w", dir, err)
		}
		return nil
	}
	defer f.Close()

	if err := f.Sync(); err != nil {
		// Some platforms/filesystems return ENOTSUP/EINVAL for fsync on a
		// directory descriptor; skip it there.
		if errors.Is(err, syscall.ENOTSUP) || errors.Is(err, os.ErrInvalid) {
			return nil
		}
		return err
	}
	return nil
}

func fsyncFileReal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
