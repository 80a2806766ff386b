// Package lock guards a project against concurrent stagehand instances.
// The TCP listener, status file, and journal all assume a single writer
// per project, so the service takes this lock before anything else.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattjoyce/stagehand/internal/status"
)

// ErrHeld reports that another live process holds the project lock.
var ErrHeld = errors.New("project lock held by another instance")

// Lock is an exclusive per-project lock backed by a pid file and flock(2).
// The lock stays alive as long as the file descriptor stays open; it does
// not survive the process, so crashed instances never leave a stuck lock.
type Lock struct {
	path string
	f    *os.File
}

// PathFor returns the lock file path for a project inside dataDir. The name
// carries the same instance hash as the status file, so instances for
// different projects can share one data directory.
func PathFor(dataDir, projectPath string) string {
	name := fmt.Sprintf("stagehand-%s.lock", status.InstanceHash(projectPath))
	return filepath.Join(dataDir, name)
}

// Acquire takes the exclusive lock for a project and records this process's
// pid in the file. It fails with ErrHeld when another live process has it.
func Acquire(dataDir, projectPath string) (*Lock, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is empty")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := PathFor(dataDir, projectPath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid, readErr := ReadPID(path); readErr == nil {
				return nil, fmt.Errorf("%w (pid %d)", ErrHeld, pid)
			}
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if err := writePID(f); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, err
	}

	return &Lock{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. The file itself is left behind; unlinking a lock
// file opens a window where two processes can each lock a different inode.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}

// ReadPID reads the pid recorded in a lock file. It says who wrote the file
// last, not whether that process is still alive.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed lock file %s: %w", path, err)
	}
	return pid, nil
}
