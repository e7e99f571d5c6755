// Package protocol defines the wire messages exchanged between the hatc
// client, the hatd daemon front, and the runner's control mailbox. Every
// message is a single-key JSON object: the key names the operation, the
// value carries its payload.
package protocol

import "strings"

// AddJobRequest is the payload of an "add_job" envelope. It doubles as a
// modify request when JobID is non-nil: the runner calls store.Modify
// instead of store.Add in that case.
type AddJobRequest struct {
	EUID     int    `json:"euid"`
	Command  string `json:"command"`
	Time     string `json:"time_"`
	UseShell string `json:"use_shell,omitempty"`
	JobID    *int   `json:"job_id,omitempty"`
}

// RemoveRequest is the payload of a "remove_job" envelope: the first
// element is the requesting euid, the rest are job ids to remove, all
// scoped to that euid. This flat-array shape matches spec.md §4.6's
// `{"remove_job": [euid, id1, id2, …]}` wire form.
type RemoveRequest []int

// EUID returns the requesting euid (the first element).
func (r RemoveRequest) EUID() int {
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// JobIDs returns the job ids to remove (everything after the euid).
func (r RemoveRequest) JobIDs() []int {
	if len(r) <= 1 {
		return nil
	}
	return r[1:]
}

// Envelope is the generic single-key request shape read off the inbound
// channel. Exactly one of the fields is non-nil/non-zero per message.
//
// add_job doubles as modify_job when its job_id is non-nil, matching
// spec.md §4.3's runner dispatch (a single "add_job" key, not two).
type Envelope struct {
	AddJob   *AddJobRequest `json:"add_job,omitempty"`
	Remove   *RemoveRequest `json:"remove_job,omitempty"`
	JobList  *int           `json:"joblist,omitempty"`
	JobCount *int           `json:"jobcount,omitempty"`
	Stop     bool           `json:"stop,omitempty"`
	Noop     bool           `json:"noop,omitempty"`
}

// Operation reports which single operation this envelope carries, or ""
// when the envelope is empty/malformed.
func (e Envelope) Operation() string {
	switch {
	case e.AddJob != nil && e.AddJob.JobID != nil:
		return "modify_job"
	case e.AddJob != nil:
		return "add_job"
	case e.Remove != nil:
		return "remove_job"
	case e.JobList != nil:
		return "joblist"
	case e.JobCount != nil:
		return "jobcount"
	case e.Stop:
		return "stop"
	case e.Noop:
		return "noop"
	default:
		return ""
	}
}

// DoneReply is written back after a successful add_job/modify_job.
type DoneReply struct {
	Msg string `json:"msg"`
}

// ErrorBody carries a single human-readable message.
type ErrorBody struct {
	Msg string `json:"msg"`
}

// ErrorReply is written back when an operation fails.
type ErrorReply struct {
	Error ErrorBody `json:"error"`
}

// NewErrorReply builds an ErrorReply from an error's message text, restoring
// the capitalized, unprefixed wording spec.md's scenarios expect on the wire
// (e.g. "No backward time travel support: …") out of the lowercased, "store:
// "-wrapped text store's sentinel errors carry internally.
func NewErrorReply(err error) ErrorReply {
	return ErrorReply{Error: ErrorBody{Msg: wireMessage(err.Error())}}
}

// wireMessage strips an internal "store: " package prefix and capitalizes
// the first rune, so internal errors can stay idiomatic (lowercase, wrapped)
// while the client-facing message matches the original scheduler.py text.
func wireMessage(msg string) string {
	msg = strings.TrimPrefix(msg, "store: ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// CountReply carries a job count.
type CountReply struct {
	Count int `json:"count"`
}
