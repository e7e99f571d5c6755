//go:build unix

// Package runner implements the daemon's single-consumer tick loop:
// draining control messages, firing due jobs, reaping their output, and
// snapshotting the store on mutation. Grounded on
// pkg/devclaw/sandbox/exec_direct.go's buildCommand/Execute pattern for
// child process capture, and pkg/devclaw/scheduler/scheduler.go's
// executeJob panic-recovery/timeout discipline, adapted from recurring-cron
// semantics to one-shot fire-and-reap. Build-tagged unix since dropping to
// the submitting user's uid/gid via syscall.Credential has no Windows
// analogue, consistent with spec.md's host-local non-goals.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/shlex"

	"github.com/heemayl/hatd/pkg/hat/paths"
	"github.com/heemayl/hatd/pkg/hat/protocol"
	"github.com/heemayl/hatd/pkg/hat/store"
)

// ErrSpawnFailed marks a child process that could not be started at all
// (executable not found, permission denied, …).
var ErrSpawnFailed = errors.New("spawn failed")

// ErrInteractiveCommandRefused marks a job whose process exited without a
// defined exit code (spec.md §4.3's "interactive/TTY-refreshing programs
// are not supported" case).
var ErrInteractiveCommandRefused = errors.New("interactive command refused")

// Reply is a fully-formed outbound message: a JSON-serializable payload the
// daemon front writes to the outbound channel on behalf of one request.
type Reply struct {
	EUID    int
	Payload any
}

// Request wraps one decoded inbound envelope together with the reply sink
// its response should be delivered to.
type Request struct {
	Envelope protocol.Envelope
	Reply    chan<- Reply
}

// Runner owns the job store exclusively: every Job mutation goes through
// its tick loop, never accessed concurrently from any other goroutine.
type Runner struct {
	store    *store.Store
	layout   paths.Layout
	logger   *slog.Logger
	inbound  <-chan Request
	interval time.Duration

	clock   func() time.Time
	homeDir func(uid int) (home string, gid uint32, err error)
}

// pendingRemoval is a remove_job request deferred until after the current
// tick's due-job fire scan, so a job that is both due and targeted for
// removal in the same tick still fires (spec.md §4.3/§5 order: fire before
// removal).
type pendingRemoval struct {
	euid  int
	jobID int
}

// New creates a Runner. inbound is the control mailbox the daemon front
// forwards decoded requests on; it is never closed by the daemon front
// while the runner is expected to keep ticking.
func New(st *store.Store, layout paths.Layout, logger *slog.Logger, inbound <-chan Request) *Runner {
	return &Runner{
		store:    st,
		layout:   layout,
		logger:   logger,
		inbound:  inbound,
		interval: 100 * time.Millisecond,
		clock:    time.Now,
		homeDir:  homeDirForUID,
	}
}

// SetTickInterval overrides the default 100ms tick interval, e.g. from
// config.Config.TickInterval. Zero is ignored so callers can pass a
// possibly-unset duration without clobbering the default.
func (r *Runner) SetTickInterval(d time.Duration) {
	if d > 0 {
		r.interval = d
	}
}

// LoadSnapshot restores the store from the on-disk snapshot, per spec.md
// §4.2's "missing or empty snapshot starts empty" rule.
func (r *Runner) LoadSnapshot() error {
	data, err := os.ReadFile(r.layout.SnapshotFile())
	if err != nil {
		if os.IsNotExist(err) {
			return r.store.LoadAll(nil)
		}
		return fmt.Errorf("runner: read snapshot: %w", err)
	}
	return r.store.LoadAll(data)
}

// Run executes the tick loop described in spec.md §4.3 until ctx is
// canceled or a "stop" message is processed.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("runner starting", "tick_interval", r.interval)
	running := true
	for running && ctx.Err() == nil {
		drainMutated, removals := r.drainInbound(&running)
		mutated := drainMutated

		due := r.store.DueJobs(r.clock())
		for _, entry := range due {
			r.fire(entry)
			r.store.Remove(entry.Job.OwnerUID, entry.JobID)
			mutated = true
		}

		for _, pr := range removals {
			if r.store.Remove(pr.euid, pr.jobID) {
				mutated = true
			} else {
				r.logger.Info("remove of unknown job ignored", "euid", pr.euid, "id", pr.jobID)
			}
		}

		if mutated {
			if err := r.snapshot(); err != nil {
				r.logger.Error("snapshot write failed", "error", err)
			}
		}

		if !running {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}
	}
	r.logger.Info("runner stopped")
}

// drainInbound processes every currently queued control message
// non-blockingly, returning whether any of them mutated the store directly
// and the remove_job requests deferred until after this tick's fire scan.
func (r *Runner) drainInbound(running *bool) (bool, []pendingRemoval) {
	mutated := false
	var removals []pendingRemoval
	for {
		select {
		case req := <-r.inbound:
			m, rm := r.handle(req)
			if m {
				mutated = true
			}
			removals = append(removals, rm...)
			if req.Envelope.Operation() == "stop" {
				*running = false
			}
		default:
			return mutated, removals
		}
	}
}

// handle dispatches one decoded request to the store/runner and writes its
// reply, returning whether the store was mutated directly and any
// remove_job requests the caller must apply after the due-job fire scan.
func (r *Runner) handle(req Request) (bool, []pendingRemoval) {
	env := req.Envelope
	now := r.clock()

	switch env.Operation() {
	case "add_job":
		a := env.AddJob
		runAt, err := store.ParseTimeString(a.Time, now)
		if err != nil {
			r.reply(req, a.EUID, protocol.NewErrorReply(err))
			return false, nil
		}
		if _, err := r.store.Add(a.EUID, a.Command, runAt, a.UseShell, now); err != nil {
			r.reply(req, a.EUID, protocol.NewErrorReply(err))
			return false, nil
		}
		r.reply(req, a.EUID, protocol.DoneReply{Msg: "Done"})
		return true, nil

	case "modify_job":
		a := env.AddJob
		var runAt int64
		runAtSet := a.Time != "" && a.Time != "_"
		if runAtSet {
			parsed, err := store.ParseTimeString(a.Time, now)
			if err != nil {
				r.reply(req, a.EUID, protocol.NewErrorReply(err))
				return false, nil
			}
			runAt = parsed
		}
		useShellSet := a.UseShell != "" && a.UseShell != "_"
		if err := r.store.Modify(a.EUID, *a.JobID, a.Command, runAt, runAtSet, a.UseShell, useShellSet, now); err != nil {
			r.reply(req, a.EUID, protocol.NewErrorReply(err))
			return false, nil
		}
		r.reply(req, a.EUID, protocol.DoneReply{Msg: "Done"})
		return true, nil

	case "remove_job":
		rm := *env.Remove
		euid := rm.EUID()
		removals := make([]pendingRemoval, 0, len(rm.JobIDs()))
		for _, id := range rm.JobIDs() {
			removals = append(removals, pendingRemoval{euid: euid, jobID: id})
		}
		r.reply(req, euid, protocol.DoneReply{Msg: "Queued"})
		return false, removals

	case "joblist":
		euid := *env.JobList
		r.reply(req, euid, r.store.List(euid))
		return false, nil

	case "jobcount":
		euid := *env.JobCount
		r.reply(req, euid, protocol.CountReply{Count: r.store.Count(euid)})
		return false, nil

	case "stop":
		r.logger.Info("stop requested")
		return false, nil

	case "noop":
		return false, nil

	default:
		r.logger.Info("dropping malformed or unknown message")
		return false, nil
	}
}

func (r *Runner) reply(req Request, euid int, payload any) {
	if req.Reply == nil {
		return
	}
	select {
	case req.Reply <- Reply{EUID: euid, Payload: payload}:
	default:
		r.logger.Warn("reply channel full, dropping reply", "euid", euid)
	}
}

// snapshot persists the full store atomically (write-then-rename) under an
// exclusive advisory lock, per spec.md §4.2.
func (r *Runner) snapshot() error {
	data, err := r.store.DumpAll()
	if err != nil {
		return fmt.Errorf("runner: dump store: %w", err)
	}

	target := r.layout.SnapshotFile()
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("runner: create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".hatdb-*.tmp")
	if err != nil {
		return fmt.Errorf("runner: create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("runner: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("runner: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("runner: rename snapshot into place: %w", err)
	}
	return nil
}

// fire spawns entry's command, captures its output, and appends the log
// lines spec.md §4.3 specifies. It never returns an error: spawn and
// runtime failures are themselves recorded as log lines.
func (r *Runner) fire(entry store.Entry) {
	job := entry.Job
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job firing panicked", "id", job.JobID, "panic", rec)
		}
	}()

	home, gid, err := r.homeDir(job.OwnerUID)
	if err != nil {
		r.logger.Error("cannot resolve home directory, discarding job", "id", job.JobID, "euid", job.OwnerUID, "error", err)
		return
	}
	if err := r.layout.EnsureUserLogDir(home); err != nil {
		r.logger.Error("cannot create user log dir, discarding job", "id", job.JobID, "error", err)
		return
	}

	argv, err := buildArgv(job.Command, job.UseShell)
	if err != nil {
		r.appendLog(home, job, 127, fmt.Sprintf("%s: %v", ErrSpawnFailed, err), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Drop to the submitting user's euid/gid before exec, per spec.md §1's
	// "sandboxing beyond dropping to the submitter's effective user id"
	// non-goal. Only root can change credentials, so this is a no-op (and
	// would fail) when the daemon itself isn't running as root — e.g. in
	// tests, where the runner fires jobs under its own uid.
	if os.Geteuid() == 0 {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{Uid: uint32(job.OwnerUID), Gid: gid},
		}
	}

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			if exitCode < 0 {
				r.logger.Error("job exited without a defined code, discarding", "id", job.JobID, "error", runErr)
				return
			}
		} else {
			r.appendLog(home, job, 127, fmt.Sprintf("%s: %v", ErrSpawnFailed, runErr), true)
			return
		}
	}

	r.appendLog(home, job, exitCode, stdout.String(), false)
	if stderr.Len() > 0 {
		r.appendLog(home, job, exitCode, stderr.String(), true)
	}
}

// appendLog appends one spec.md §4.3 formatted line to the owner's
// stdout.log or stderr.log.
func (r *Runner) appendLog(home string, job store.Job, exitCode int, output string, isStderr bool) {
	line := formatLogLine(r.clock(), job, exitCode, output)
	logPath := r.layout.UserStdoutLog(home)
	if isStderr {
		logPath = r.layout.UserStderrLog(home)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		r.logger.Error("cannot open user log file", "path", logPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		r.logger.Error("cannot write user log line", "path", logPath, "error", err)
	}
}

// formatLogLine renders the exact line shape from spec.md §4.3:
//
//	<YYYY-mm-dd HH:MM:SS> : euid><uid> : id><jobid> : time><scheduled ISO> : cmd><command> : ret><exitcode> :: out><output>
func formatLogLine(now time.Time, job store.Job, exitCode int, output string) string {
	scheduled := time.Unix(job.RunAt, 0).In(now.Location()).Format("2006-01-02T15:04:05")
	return fmt.Sprintf(
		"%s : euid>%d : id>%d : time>%s : cmd>%s : ret>%d :: out>%s",
		now.Format("2006-01-02 15:04:05"),
		job.OwnerUID, job.JobID, scheduled, job.Command, exitCode, output,
	)
}

// buildArgv tokenizes command for execution: shlex.Split when useShell is
// empty, else [useShell, "-c", command], matching spec.md §4.3's child
// process contract. Grounded on github.com/google/shlex, the tokenizer
// pkg/devclaw/processtool/process.go (gliderlab-OCG) uses for shell-like
// argument splitting.
func buildArgv(command, useShell string) ([]string, error) {
	if useShell != "" {
		return []string{useShell, "-c", command}, nil
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("tokenize command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return argv, nil
}

var homeDirMu sync.Mutex

// homeDirForUID resolves a uid to its home directory and primary gid via
// os/user, the idiomatic stdlib replacement for parsing /etc/passwd
// directly the way original_source/hat/lib/utils.py's username_from_euid
// does. The gid is needed to drop the child process's credentials in fire.
func homeDirForUID(uid int) (home string, gid uint32, err error) {
	homeDirMu.Lock()
	defer homeDirMu.Unlock()

	u, err := user.LookupId(fmt.Sprintf("%d", uid))
	if err != nil {
		return "", 0, fmt.Errorf("lookup uid %d: %w", uid, err)
	}
	g, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("parse gid for uid %d: %w", uid, err)
	}
	return u.HomeDir, uint32(g), nil
}
