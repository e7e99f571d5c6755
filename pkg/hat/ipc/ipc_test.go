//go:build unix

package ipc

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewEndpointFlattensLockPath(t *testing.T) {
	ep := NewEndpoint("/var/run/hatd/ipc/daemon_in", "/var/run/hatd/locks")
	want := "/var/run/hatd/locks/.__var_run_hatd_ipc_daemon_in.lock"
	if ep.LockPath != want {
		t.Fatalf("LockPath = %q, want %q", ep.LockPath, want)
	}
}

func TestEnsureCreatesFIFOOnce(t *testing.T) {
	dir := t.TempDir()
	ep := NewEndpoint(filepath.Join(dir, "daemon_in"), filepath.Join(dir, "locks"))

	if err := ep.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	// Calling again must not error even though the FIFO already exists.
	if err := ep.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
}

func TestWriteLineThenReadLineRoundTrips(t *testing.T) {
	dir := t.TempDir()
	ep := NewEndpoint(filepath.Join(dir, "daemon_in"), filepath.Join(dir, "locks"))
	if err := ep.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	result := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := ep.ReadLine()
		if err != nil {
			errCh <- err
			return
		}
		result <- line
	}()

	// Give the reader a moment to open the FIFO before writing; opening a
	// FIFO for write blocks until a reader is present.
	time.Sleep(20 * time.Millisecond)
	if err := ep.WriteLine(`{"noop":true}`, nil); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}

	select {
	case err := <-errCh:
		t.Fatalf("ReadLine: %v", err)
	case got := <-result:
		if got != `{"noop":true}` {
			t.Fatalf("got %q, want noop envelope", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ReadLine")
	}
}

func TestPendingLinesWithNoWriterReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	ep := NewEndpoint(filepath.Join(dir, "runner_in"), filepath.Join(dir, "locks"))
	if err := ep.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	lines, err := ep.PendingLines()
	if err != nil {
		t.Fatalf("PendingLines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("got %v, want no pending lines", lines)
	}
}
