package storagefs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Storage is the capability the persistence layer depends on: atomic append, crash-safe whole-file write, file existence, and
// recovery. It is the seam between the core and the concrete filesystem.
type Storage struct {
	fs            FS
	crashSafeFunc func(path string, data []byte) error
}

// New wraps fs with storagefs's crash-safe rewrite built purely on the FS
// interface. Used in tests against the fault-injecting double so recovery
// invariants can be exercised without a real disk.
func New(fs FS) *Storage {
	return &Storage{
		fs:            fs,
		crashSafeFunc: func(path string, data []byte) error { return genericCrashSafeWrite(fs, path, data) },
	}
}

// NewReal creates a Storage backed by the real filesystem, using
// natefinch/atomic for the production crash-safe rewrite path.
func NewReal() *Storage {
	return &Storage{
		fs:            Real{},
		crashSafeFunc: atomicRealWrite,
	}
}

// Exists reports whether path exists.
func (s *Storage) Exists(path string) (bool, error) {
	return s.fs.Exists(path)
}

// AppendLines appends each line (without trailing newline) as its own
// terminated line to path, creating the file if needed. Appends are not
// individually fsync'd - durability lands on the next compaction.
func (s *Storage) AppendLines(path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	f, err := s.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storagefs: open for append: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("storagefs: append: %w", err)
	}
	return nil
}

// CrashSafeWrite rewrites path atomically and durably to contain exactly
// data.
func (s *Storage) CrashSafeWrite(path string, data []byte) error {
	return s.crashSafeFunc(path, data)
}

// MkdirAll ensures dir (and parents) exist.
func (s *Storage) MkdirAll(dir string) error {
	return s.fs.MkdirAll(dir, 0o750)
}

// ReadLines reads path and splits it into lines, dropping a single
// trailing blank line.
func (s *Storage) ReadLines(path string) ([]string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storagefs: open: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("storagefs: scan: %w", err)
	}

	return lines, nil
}

// Recover repairs a crashed prior rewrite on open: if target is missing and
// its sibling "<target>~" exists, the sibling is renamed into place (the
// prior rewrite crashed after writing the sibling but before the rename).
// If both are missing, an empty target is created. If target exists, it
// proceeds unchanged (any sibling is stale and will be overwritten by the
// next rewrite).
func (s *Storage) Recover(path string) error {
	if strings.HasSuffix(path, "~") {
		return fmt.Errorf("storagefs: filename %q must not end in '~'", path)
	}

	sibling := path + "~"

	targetExists, err := s.fs.Exists(path)
	if err != nil {
		return fmt.Errorf("storagefs: checking target: %w", err)
	}
	if targetExists {
		return nil
	}

	siblingExists, err := s.fs.Exists(sibling)
	if err != nil {
		return fmt.Errorf("storagefs: checking sibling: %w", err)
	}
	if siblingExists {
		if err := s.fs.Rename(sibling, path); err != nil {
			return fmt.Errorf("storagefs: recovering from sibling: %w", err)
		}
		return nil
	}

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storagefs: creating empty target: %w", err)
	}
	return f.Close()
}

// ErrReservedFilename is returned when a configured filename ends in "~",
// which conflicts with the sibling-file convention.
var ErrReservedFilename = errors.New("storagefs: filename must not end in '~'")

// ValidateFilename rejects filenames that conflict with the sibling
// convention used by CrashSafeWrite.
func ValidateFilename(path string) error {
	if strings.HasSuffix(path, "~") {
		return ErrReservedFilename
	}
	return nil
}
