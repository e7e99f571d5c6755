// Package client implements hatc's core request/response cycle: turn a
// decoded CLI intent into exactly one wire request, write it to the
// daemon, and read one reply within a bounded window. Grounded on
// original_source/hat/client.py's argument_serializer/SendReceiveData
// control flow (the "_" placeholder convention for modify_job, the flat
// euid-prefixed remove_job array), adapted to the teacher's cobra-driven
// command style for cmd/hatc.
package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/heemayl/hatd/pkg/hat/ipc"
	"github.com/heemayl/hatd/pkg/hat/paths"
	"github.com/heemayl/hatd/pkg/hat/protocol"
	"github.com/heemayl/hatd/pkg/hat/store"
	"github.com/heemayl/hatd/pkg/hat/timeparse"
)

// keepSentinel is the CLI placeholder meaning "leave this field unchanged"
// in a modify request, matching client.py's literal "_" convention.
const keepSentinel = "_"

// readTimeout is the client's single bounded read of the outbound
// channel. Kept flat at 1s with no retry per spec.md §4.6/§9 — this
// mirrors client.py's read_file, itself a single, non-retrying attempt.
const readTimeout = time.Second

// Client sends exactly one request per call and reads exactly one reply.
type Client struct {
	EUID   int
	layout paths.Layout
	in     ipc.Endpoint
	out    ipc.Endpoint
}

// New creates a Client bound to layout's daemon-facing IPC endpoints.
func New(layout paths.Layout, euid int) *Client {
	return &Client{
		EUID:   euid,
		layout: layout,
		in:     ipc.NewEndpoint(layout.DaemonIn(), layout.LocksDir()),
		out:    ipc.NewEndpoint(layout.DaemonOut(), layout.LocksDir()),
	}
}

// List requests the caller's sorted job list.
func (c *Client) List() (string, error) {
	euid := c.EUID
	return c.roundTrip(protocol.Envelope{JobList: &euid})
}

// Count requests the caller's queued job count.
func (c *Client) Count() (string, error) {
	euid := c.EUID
	return c.roundTrip(protocol.Envelope{JobCount: &euid})
}

// Add submits a new job: command, a human time phrase (resolved locally
// via pkg/hat/timeparse before it goes on the wire, matching client.py's
// add_job_fmt), and an optional shell name ("" for none).
func (c *Client) Add(command, timePhrase, shell string) (string, error) {
	epoch, err := timeparse.Parse(timePhrase, time.Now())
	if err != nil {
		return "", fmt.Errorf("client: %w", err)
	}
	req := protocol.AddJobRequest{
		EUID:     c.EUID,
		Command:  command,
		Time:     store.FormatTimeString(epoch, time.Local),
		UseShell: shell,
	}
	return c.roundTrip(protocol.Envelope{AddJob: &req})
}

// Modify resubmits job jobID with possibly-partial updates. A field equal
// to keepSentinel ("_") is passed through unresolved, so the daemon-side
// store.Modify leaves it unchanged.
func (c *Client) Modify(jobID int, command, timePhrase, shell string) (string, error) {
	req := protocol.AddJobRequest{
		EUID:     c.EUID,
		Command:  command,
		UseShell: shell,
		JobID:    &jobID,
	}
	if timePhrase == keepSentinel {
		req.Time = keepSentinel
	} else {
		epoch, err := timeparse.Parse(timePhrase, time.Now())
		if err != nil {
			return "", fmt.Errorf("client: %w", err)
		}
		req.Time = store.FormatTimeString(epoch, time.Local)
	}
	return c.roundTrip(protocol.Envelope{AddJob: &req})
}

// Remove deletes job ids owned by the caller.
func (c *Client) Remove(jobIDs []int) (string, error) {
	payload := make(protocol.RemoveRequest, 0, len(jobIDs)+1)
	payload = append(payload, c.EUID)
	payload = append(payload, jobIDs...)
	return c.roundTrip(protocol.Envelope{Remove: &payload})
}

// StopDaemon requests a graceful daemon shutdown. Permitted only when
// EUID == 0, per spec.md §4.6; callers must enforce this before invoking
// StopDaemon since the client has no independent privilege to check.
func (c *Client) StopDaemon() error {
	if c.EUID != 0 {
		return fmt.Errorf("client: stop_daemon permitted only for euid 0")
	}
	data, err := json.Marshal(protocol.Envelope{Stop: true})
	if err != nil {
		return fmt.Errorf("client: marshal stop request: %w", err)
	}
	return c.in.WriteLine(string(data), nil)
}

// roundTrip writes env and returns the single reply line the daemon
// writes back, bounded by readTimeout.
func (c *Client) roundTrip(env protocol.Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("client: marshal request: %w", err)
	}
	if err := c.in.WriteLine(string(data), nil); err != nil {
		return "", fmt.Errorf("client: write request: %w", err)
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := c.out.ReadLine()
		done <- result{line, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("client: read reply: %w", r.err)
		}
		return r.line, nil
	case <-time.After(readTimeout):
		return "", fmt.Errorf("client: timed out waiting for daemon reply")
	}
}
