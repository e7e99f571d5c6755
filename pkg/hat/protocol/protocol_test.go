package protocol

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeOperationAddJob(t *testing.T) {
	env := Envelope{AddJob: &AddJobRequest{EUID: 1000, Command: "true", Time: "now"}}
	if got := env.Operation(); got != "add_job" {
		t.Fatalf("got %q, want add_job", got)
	}
}

func TestEnvelopeOperationModifyJob(t *testing.T) {
	id := 5
	env := Envelope{AddJob: &AddJobRequest{EUID: 1000, JobID: &id}}
	if got := env.Operation(); got != "modify_job" {
		t.Fatalf("got %q, want modify_job", got)
	}
}

func TestEnvelopeOperationEmpty(t *testing.T) {
	var env Envelope
	if got := env.Operation(); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRemoveRequestWireShape(t *testing.T) {
	req := RemoveRequest{1000, 3, 4}
	data, err := json.Marshal(Envelope{Remove: &req})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Remove.EUID() != 1000 {
		t.Fatalf("EUID() = %d, want 1000", decoded.Remove.EUID())
	}
	jobIDs := decoded.Remove.JobIDs()
	if len(jobIDs) != 2 || jobIDs[0] != 3 || jobIDs[1] != 4 {
		t.Fatalf("JobIDs() = %v, want [3 4]", jobIDs)
	}
}

func TestRemoveRequestEmptyHasNoEUIDOrJobIDs(t *testing.T) {
	var req RemoveRequest
	if req.EUID() != 0 {
		t.Fatalf("EUID() of empty request = %d, want 0", req.EUID())
	}
	if req.JobIDs() != nil {
		t.Fatalf("JobIDs() of empty request = %v, want nil", req.JobIDs())
	}
}

func TestErrorReplyShape(t *testing.T) {
	data, err := json.Marshal(NewErrorReply(errFixture{"No backward time travel support: x"}))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"error":{"msg":"No backward time travel support: x"}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestErrorReplyStripsStorePrefixAndCapitalizes(t *testing.T) {
	data, err := json.Marshal(NewErrorReply(errFixture{"store: no backward time travel support: 2000-01-01_00:00:00"}))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"error":{"msg":"No backward time travel support: 2000-01-01_00:00:00"}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestErrorReplySlotExceededMatchesSpecWording(t *testing.T) {
	reply := NewErrorReply(errFixture{"store: job slot exceeded: maximum 40000 jobs can be enqueued"})
	if got := reply.Error.Msg; got != "Job slot exceeded: maximum 40000 jobs can be enqueued" {
		t.Fatalf("got %q, want capitalized, unprefixed slot-exceeded message", got)
	}
}

type errFixture struct{ msg string }

func (e errFixture) Error() string { return e.msg }
