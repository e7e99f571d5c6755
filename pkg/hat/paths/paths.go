// Package paths centralizes the filesystem layout described in spec.md §6,
// so every other package gets directory and file locations from one place
// instead of hardcoding them.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves every on-disk location hatd/hatc touch, rooted at
// BaseDir (normally "/" so the paths below match spec.md §6 verbatim;
// tests override BaseDir to a t.TempDir()).
type Layout struct {
	BaseDir string
}

// Default is the layout rooted at "/", matching spec.md §6's absolute paths.
func Default() Layout {
	return Layout{BaseDir: "/"}
}

func (l Layout) join(elem ...string) string {
	return filepath.Join(append([]string{l.BaseDir}, elem...)...)
}

// RunDir is /var/run/hatd.
func (l Layout) RunDir() string { return l.join("var", "run", "hatd") }

// IPCDir is /var/run/hatd/ipc.
func (l Layout) IPCDir() string { return filepath.Join(l.RunDir(), "ipc") }

// DaemonIn is the client→daemon byte stream.
func (l Layout) DaemonIn() string { return filepath.Join(l.IPCDir(), "daemon_in") }

// DaemonOut is the daemon→client byte stream.
func (l Layout) DaemonOut() string { return filepath.Join(l.IPCDir(), "daemon_out") }

// RunnerIn is the daemon front→runner internal byte stream.
func (l Layout) RunnerIn() string { return filepath.Join(l.IPCDir(), "runner_in") }

// RunnerOut is the runner→daemon front internal byte stream.
func (l Layout) RunnerOut() string { return filepath.Join(l.IPCDir(), "runner_out") }

// PidFile is /var/run/hatd/hatd.pid.
func (l Layout) PidFile() string { return filepath.Join(l.RunDir(), "hatd.pid") }

// LocksDir is /var/run/hatd/locks, one lock file per guarded path.
func (l Layout) LocksDir() string { return filepath.Join(l.RunDir(), "locks") }

// LockFileFor returns the sidecar lock path for a guarded path, following
// the "._<path>.lock" naming in spec.md §6. The guarded path's separators
// are flattened so the lock file is a single path component.
func (l Layout) LockFileFor(guarded string) string {
	flat := filepath.Clean(guarded)
	flat = filepath.ToSlash(flat)
	for i := 0; i < len(flat); i++ {
		if flat[i] == '/' {
			flat = flat[:i] + "_" + flat[i+1:]
		}
	}
	return filepath.Join(l.LocksDir(), fmt.Sprintf("._%s.lock", flat))
}

// LibDir is /var/lib/hatd.
func (l Layout) LibDir() string { return l.join("var", "lib", "hatd") }

// SnapshotFile is /var/lib/hatd/hatdb.
func (l Layout) SnapshotFile() string { return filepath.Join(l.LibDir(), "hatdb") }

// LogDir is /var/log/hatd.
func (l Layout) LogDir() string { return l.join("var", "log", "hatd") }

// DaemonLogFile is /var/log/hatd/daemon.log.
func (l Layout) DaemonLogFile() string { return filepath.Join(l.LogDir(), "daemon.log") }

// UserLogDir is the per-user ~/.hatd/logs directory (mode 0700) for the
// given home directory.
func (l Layout) UserLogDir(home string) string { return filepath.Join(home, ".hatd", "logs") }

// UserStdoutLog is ~/.hatd/logs/stdout.log for the given home directory.
func (l Layout) UserStdoutLog(home string) string {
	return filepath.Join(l.UserLogDir(home), "stdout.log")
}

// UserStderrLog is ~/.hatd/logs/stderr.log for the given home directory.
func (l Layout) UserStderrLog(home string) string {
	return filepath.Join(l.UserLogDir(home), "stderr.log")
}

// EnsureDaemonDirs creates every directory the daemon needs at startup,
// with the permissions spec.md §6 implies: world-traversable run/lib/log
// trees (the daemon runs as root and narrows per-user directories itself).
func (l Layout) EnsureDaemonDirs() error {
	dirs := []string{l.IPCDir(), l.LocksDir(), l.LibDir(), l.LogDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("paths: create %s: %w", d, err)
		}
	}
	return nil
}

// EnsureUserLogDir creates a user's log directory at mode 0700, per
// spec.md §6's "per-user output, mode 0700 directory" requirement.
func (l Layout) EnsureUserLogDir(home string) error {
	dir := l.UserLogDir(home)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("paths: create %s: %w", dir, err)
	}
	return os.Chmod(dir, 0o700)
}
