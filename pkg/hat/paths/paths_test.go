package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayoutMatchesSpecPaths(t *testing.T) {
	l := Default()

	cases := map[string]string{
		"DaemonIn":     "/var/run/hatd/ipc/daemon_in",
		"DaemonOut":    "/var/run/hatd/ipc/daemon_out",
		"RunnerIn":     "/var/run/hatd/ipc/runner_in",
		"RunnerOut":    "/var/run/hatd/ipc/runner_out",
		"PidFile":      "/var/run/hatd/hatd.pid",
		"SnapshotFile": "/var/lib/hatd/hatdb",
		"DaemonLogFile": "/var/log/hatd/daemon.log",
	}

	got := map[string]string{
		"DaemonIn":      l.DaemonIn(),
		"DaemonOut":     l.DaemonOut(),
		"RunnerIn":      l.RunnerIn(),
		"RunnerOut":     l.RunnerOut(),
		"PidFile":       l.PidFile(),
		"SnapshotFile":  l.SnapshotFile(),
		"DaemonLogFile": l.DaemonLogFile(),
	}

	for name, want := range cases {
		if got[name] != want {
			t.Errorf("%s = %q, want %q", name, got[name], want)
		}
	}
}

func TestUserLogPaths(t *testing.T) {
	l := Default()
	home := "/home/alice"
	if got, want := l.UserStdoutLog(home), "/home/alice/.hatd/logs/stdout.log"; got != want {
		t.Errorf("UserStdoutLog = %q, want %q", got, want)
	}
	if got, want := l.UserStderrLog(home), "/home/alice/.hatd/logs/stderr.log"; got != want {
		t.Errorf("UserStderrLog = %q, want %q", got, want)
	}
}

func TestLockFileForFlattensPath(t *testing.T) {
	l := Default()
	lock := l.LockFileFor(l.DaemonIn())
	if filepath.Dir(lock) != l.LocksDir() {
		t.Fatalf("lock file %q not under locks dir %q", lock, l.LocksDir())
	}
	if lock[:len(l.LocksDir())+2] != l.LocksDir()+"/." {
		t.Fatalf("lock file %q missing dot-prefix convention", lock)
	}
}

func TestBaseDirOverrideIsRooted(t *testing.T) {
	tmp := t.TempDir()
	l := Layout{BaseDir: tmp}
	if got, want := l.PidFile(), filepath.Join(tmp, "var", "run", "hatd", "hatd.pid"); got != want {
		t.Fatalf("PidFile = %q, want %q", got, want)
	}
}

func TestEnsureDaemonDirsCreatesTree(t *testing.T) {
	l := Layout{BaseDir: t.TempDir()}
	if err := l.EnsureDaemonDirs(); err != nil {
		t.Fatalf("EnsureDaemonDirs: %v", err)
	}
	for _, dir := range []string{l.IPCDir(), l.LocksDir(), l.LibDir(), l.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}
