// Package daemonfront implements the daemon's JSON-line dispatcher: it
// reads single-key envelopes off the client-facing inbound endpoint,
// forwards decoded requests to the runner's mailbox, and writes replies
// back to the outbound endpoint. Grounded on
// pkg/devclaw/copilot/daemon_manager.go's action-dispatch shape, adapted
// from an in-process action switch into cross-goroutine message forwarding
// (spec.md §4.4).
package daemonfront

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/heemayl/hatd/pkg/hat/ipc"
	"github.com/heemayl/hatd/pkg/hat/protocol"
	"github.com/heemayl/hatd/pkg/hat/runner"
)

// Front owns the client-facing IPC endpoints and the runner mailbox they
// feed.
type Front struct {
	in      ipc.Endpoint
	out     ipc.Endpoint
	inbound chan<- runner.Request
	logger  *slog.Logger
}

// New creates a Front bound to the given endpoints and runner mailbox.
func New(in, out ipc.Endpoint, inbound chan<- runner.Request, logger *slog.Logger) *Front {
	return &Front{in: in, out: out, inbound: inbound, logger: logger}
}

// Run blocks reading lines from the inbound endpoint, dispatching each to
// the runner and writing its reply. ctx is checked between lines only: a
// ReadLine that is waiting for a writer is not interrupted by cancellation,
// so Run returns after the next line (or writer close) following it.
func (f *Front) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := f.in.ReadLine()
		if err != nil {
			f.logger.Error("daemon front read failed", "error", err)
			continue
		}
		if line == "" {
			continue
		}
		f.dispatch(line)
	}
}

// dispatch decodes one JSON line and forwards it to the runner, writing
// whatever reply comes back (or nothing, for fire-and-forget operations
// like stop/noop that carry no reply).
func (f *Front) dispatch(line string) {
	var env protocol.Envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		f.logger.Info("dropping malformed message", "error", err, "line", line)
		return
	}
	if env.Operation() == "" {
		f.logger.Info("dropping unknown message", "line", line)
		return
	}

	op := env.Operation()

	var replyCh chan runner.Reply
	if expectsReply(op) {
		replyCh = make(chan runner.Reply, 1)
	}
	req := runner.Request{Envelope: env, Reply: replyCh}

	select {
	case f.inbound <- req:
	default:
		f.logger.Warn("runner mailbox full, dropping message", "op", op)
		return
	}

	if replyCh == nil {
		return
	}
	f.writeReply(<-replyCh)
}

// expectsReply reports whether op produces an outbound reply. stop and
// noop are fire-and-forget per spec.md §4.3/§7.
func expectsReply(op string) bool {
	switch op {
	case "stop", "noop":
		return false
	default:
		return true
	}
}

func (f *Front) writeReply(reply runner.Reply) {
	data, err := json.Marshal(reply.Payload)
	if err != nil {
		f.logger.Error("cannot marshal reply", "error", err)
		return
	}
	if err := f.out.WriteLine(string(data), f.logger); err != nil {
		f.logger.Error("cannot write reply", "error", err)
	}
}
