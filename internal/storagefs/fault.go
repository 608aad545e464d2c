package storagefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FaultFS is a test-only FS that simulates crash consistency and can
// inject failures at specific operations. It runs against a real on-disk
// working directory (so returned File values are real *os.File handles),
// while separately tracking which writes are "durable" - i.e. have
// survived an explicit Sync of the file or its containing directory.
//
// SimulateCrash restores the working directory to the last durable
// snapshot, discarding any unsynced writes, renames, or directory
// entries - the same failure mode storagefs.CrashSafeWrite is designed to
// survive.
//
// FaultFS is not meant for production use.
type FaultFS struct {
	baseDir string

	mu        sync.Mutex
	durable   map[string][]byte // path -> durable content
	durableOK map[string]bool   // path -> durably exists (may have nil content for dirs)
	faults    map[string]error  // op name -> error to return once, then clear
}

// NewFaultFS creates a FaultFS rooted at baseDir, which must already exist
// and be empty. The initial state (baseDir itself) is considered durable.
func NewFaultFS(baseDir string) *FaultFS {
	return &FaultFS{
		baseDir:   baseDir,
		durable:   make(map[string][]byte),
		durableOK: map[string]bool{baseDir: true},
		faults:    make(map[string]error),
	}
}

// FailNext arranges for the next call to the named operation ("open",
// "openfile", "write", "sync", "rename", "mkdirall") to fail with err.
// The injected failure is consumed after one use.
func (f *FaultFS) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = err
}

func (f *FaultFS) takeFault(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err, ok := f.faults[op]
	if ok {
		delete(f.faults, op)
		return err
	}
	return nil
}

func (f *FaultFS) Open(path string) (File, error) {
	if err := f.takeFault("open"); err != nil {
		return nil, err
	}
	osFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &faultFile{File: osFile, fs: f, path: path}, nil
}

func (f *FaultFS) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.takeFault("openfile"); err != nil {
		return nil, err
	}
	osFile, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultFile{File: osFile, fs: f, path: path}, nil
}

func (f *FaultFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (f *FaultFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.takeFault("mkdirall"); err != nil {
		return err
	}
	return os.MkdirAll(path, perm)
}

func (f *FaultFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (f *FaultFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *FaultFS) Remove(path string) error { return os.Remove(path) }

func (f *FaultFS) Rename(oldpath, newpath string) error {
	if err := f.takeFault("rename"); err != nil {
		return err
	}
	return os.Rename(oldpath, newpath)
}

// faultFile wraps an *os.File, routing Sync through the owning FaultFS so
// durability can be tracked, and Write through fault injection.
type faultFile struct {
	*os.File
	fs   *FaultFS
	path string
}

func (ff *faultFile) Write(p []byte) (int, error) {
	if err := ff.fs.takeFault("write"); err != nil {
		return 0, err
	}
	return ff.File.Write(p)
}

func (ff *faultFile) Sync() error {
	if err := ff.fs.takeFault("sync"); err != nil {
		return err
	}
	if err := ff.File.Sync(); err != nil {
		return err
	}
	ff.fs.markDurable(ff.path)
	return nil
}

// markDurable snapshots the current on-disk content of path (or, for a
// directory, the set of entries within it) into the durable view.
func (f *FaultFS) markDurable(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return
		}
		for _, e := range entries {
			full := filepath.Join(path, e.Name())
			f.durableOK[full] = true
			if !e.IsDir() {
				if content, err := os.ReadFile(full); err == nil {
					f.durable[full] = content
				}
			}
		}
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	f.durable[path] = content
	f.durableOK[path] = true
}

// SimulateCrash restores baseDir to the last durable snapshot: any file
// not marked durable is removed, and any durable file is rewritten to its
// snapshotted content. This simulates the machine losing power at an
// arbitrary point and coming back up.
func (f *FaultFS) SimulateCrash() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var current []string
	err := filepath.Walk(f.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			current = append(current, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("faultfs: walk: %w", err)
	}

	for _, path := range current {
		if !f.durableOK[path] {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("faultfs: rollback remove %q: %w", path, err)
			}
			continue
		}
		if content, ok := f.durable[path]; ok {
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return fmt.Errorf("faultfs: rollback restore %q: %w", path, err)
			}
		}
	}

	f.faults = make(map[string]error)
	return nil
}
