//go:build unix

// Package ipc implements the two named-FIFO byte-stream endpoints (plus
// their sidecar advisory locks) spec.md §4.5 describes: client↔daemon and
// daemon-front↔runner. Go has no stdlib named pipe the way Python's
// os.mkfifo does, so endpoints are created with syscall.Mkfifo and guarded
// by golang.org/x/sys/unix Flock-based locks on sidecar files, following
// original_source/hat/lib/utils.py's FLock discipline (LOCK_EX for writers
// on the endpoint's lock file, LOCK_SH for readers on their own reader lock
// file beside it; both are keyed by the endpoint path).
package ipc

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Endpoint is one named-FIFO byte stream plus its sidecar lock file path.
type Endpoint struct {
	Path     string
	LockPath string
}

// NewEndpoint describes an endpoint rooted at path, with its lock file
// resolved under locksDir using the "._<flattened path>.lock" convention.
func NewEndpoint(path, locksDir string) Endpoint {
	flat := filepath.ToSlash(filepath.Clean(path))
	for i := 0; i < len(flat); i++ {
		if flat[i] == '/' {
			flat = flat[:i] + "_" + flat[i+1:]
		}
	}
	return Endpoint{
		Path:     path,
		LockPath: filepath.Join(locksDir, fmt.Sprintf("._%s.lock", flat)),
	}
}

// Ensure creates the FIFO at e.Path if it doesn't already exist. FIFOs are
// created mode 0666; the directory holding them is expected to already
// restrict access (spec.md §6's /var/run/hatd tree).
func (e Endpoint) Ensure() error {
	if _, err := os.Stat(e.Path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("ipc: stat %s: %w", e.Path, err)
	}
	if err := syscall.Mkfifo(e.Path, 0o666); err != nil {
		return fmt.Errorf("ipc: mkfifo %s: %w", e.Path, err)
	}
	return nil
}

// lockFile opens (creating if necessary) and flock()s a sidecar lock file.
// how is unix.LOCK_EX (writers, on e.LockPath) or unix.LOCK_SH (readers, on
// a separate ".reader.lock" file, so a reader blocked waiting for a writer
// never holds the writers' lock). The returned file holds the lock; callers
// must release it with e.unlock.
func (e Endpoint) lockFile(how int) (*os.File, error) {
	lockPath := e.LockPath
	if how == unix.LOCK_SH {
		lockPath = strings.TrimSuffix(e.LockPath, ".lock") + ".reader.lock"
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ipc: create lock dir for %s: %w", lockPath, err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return nil, fmt.Errorf("ipc: open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, fmt.Errorf("ipc: flock %s: %w", lockPath, err)
	}
	return f, nil
}

func (e Endpoint) unlock(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	f.Close()
}

// WriteLine appends line (newline-terminated on the wire) to the endpoint
// under an exclusive advisory lock, so concurrent writers never interleave
// bytes. traceID correlates the write attempt in the daemon log if the
// caller chooses to log it (SPEC_FULL.md §4's uuid wiring).
func (e Endpoint) WriteLine(line string, logger *slog.Logger) error {
	traceID := uuid.NewString()
	lockf, err := e.lockFile(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer e.unlock(lockf)

	if logger != nil {
		logger.Debug("ipc write", "path", e.Path, "trace_id", traceID)
	}

	f, err := os.OpenFile(e.Path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("ipc: open %s for write: %w", e.Path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("ipc: write %s: %w", e.Path, err)
	}
	return nil
}

// ReadLine blocks until one newline-terminated line is available from the
// endpoint, under a shared advisory lock. Opening a FIFO for read-only
// blocks until a writer opens its write end, matching the Python original's
// blocking-read behavior.
func (e Endpoint) ReadLine() (string, error) {
	lockf, err := e.lockFile(unix.LOCK_SH)
	if err != nil {
		return "", err
	}
	defer e.unlock(lockf)

	f, err := os.OpenFile(e.Path, os.O_RDONLY, 0)
	if err != nil {
		return "", fmt.Errorf("ipc: open %s for read: %w", e.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("ipc: read %s: %w", e.Path, err)
		}
		return "", nil
	}
	return scanner.Text(), nil
}

// PendingLines drains every currently-available line from the endpoint
// without blocking past what the writer has already flushed. The runner
// does not call it: its mailbox is an in-process channel. It opens the
// FIFO in non-blocking mode so a call with no waiting writer returns
// immediately with zero lines instead of hanging.
func (e Endpoint) PendingLines() ([]string, error) {
	lockf, err := e.lockFile(unix.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer e.unlock(lockf)

	fd, err := unix.Open(e.Path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if err == unix.ENXIO {
			// No writer currently has the FIFO open; nothing pending.
			return nil, nil
		}
		return nil, fmt.Errorf("ipc: open %s nonblocking: %w", e.Path, err)
	}
	f := os.NewFile(uintptr(fd), e.Path)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, nil
}
