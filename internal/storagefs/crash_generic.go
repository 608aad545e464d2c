package storagefs

import (
	"fmt"
	"os"
	"path/filepath"
)

// genericCrashSafeWrite implements the crash-safe whole-file rewrite
// purely against the FS interface, so it can run identically
// against Real or the fault-injecting test double: fsync the containing
// directory, fsync the existing target (if any), write+fsync a sibling
// "<target>~", rename it over the target, then fsync the directory again.
func genericCrashSafeWrite(fs FS, path string, data []byte) error {
	dir := filepath.Dir(path)
	sibling := path + "~"

	if err := fsyncDirGeneric(fs, dir); err != nil {
		return err
	}

	if existed, err := fs.Exists(path); err != nil {
		return fmt.Errorf("storagefs: checking existing file: %w", err)
	} else if existed {
		if err := fsyncFileGeneric(fs, path); err != nil {
			return fmt.Errorf("storagefs: fsync existing file: %w", err)
		}
	}

	f, err := fs.OpenFile(sibling, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storagefs: create sibling: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("storagefs: write sibling: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("storagefs: sync sibling: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("storagefs: close sibling: %w", err)
	}

	if err := fs.Rename(sibling, path); err != nil {
		return fmt.Errorf("storagefs: rename sibling over target: %w", err)
	}

	if err := fsyncDirGeneric(fs, dir); err != nil {
		return ErrDirSync
	}

	return nil
}

func fsyncDirGeneric(fs FS, dir string) error {
	f, err := fs.Open(dir)
	if err != nil {
		return nil // directory fsync unsupported/unavailable: skip
	}
	defer f.Close()
	return f.Sync()
}

func fsyncFileGeneric(fs FS, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
