package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/botmesh/core"
)

// ResponderCall records a single wire operation performed on a
// RecordingResponder.
type ResponderCall struct {
	// Op is one of "reply", "defer", "edit", "followup".
	Op string
	// Reply is the payload for reply/edit/followup calls, nil for defer.
	Reply *core.Reply
	// Ephemeral is the defer visibility flag.
	Ephemeral bool
	// At is when the call was made.
	At time.Time
}

// RecordingResponder is a core.Responder test double that records every call
// and can be scripted to fail or to add latency per operation.
type RecordingResponder struct {
	mu    sync.Mutex
	calls []ResponderCall

	// Scripted errors, returned after recording the call.
	ReplyErr    error
	DeferErr    error
	EditErr     error
	FollowUpErr error

	// Latency is slept before each call returns, simulating API round trips.
	Latency time.Duration
}

// NewRecordingResponder creates an empty recording responder.
func NewRecordingResponder() *RecordingResponder {
	return &RecordingResponder{}
}

func (r *RecordingResponder) record(op string, reply *core.Reply, ephemeral bool) {
	r.mu.Lock()
	r.calls = append(r.calls, ResponderCall{Op: op, Reply: reply, Ephemeral: ephemeral, At: time.Now()})
	r.mu.Unlock()
	if r.Latency > 0 {
		time.Sleep(r.Latency)
	}
}

// Reply records an initial response.
func (r *RecordingResponder) Reply(ctx context.Context, reply *core.Reply) error {
	r.record("reply", reply, false)
	return r.ReplyErr
}

// Defer records an acknowledgement.
func (r *RecordingResponder) Defer(ctx context.Context, ephemeral bool) error {
	r.record("defer", nil, ephemeral)
	return r.DeferErr
}

// Edit records an edit of the deferred response.
func (r *RecordingResponder) Edit(ctx context.Context, reply *core.Reply) error {
	r.record("edit", reply, false)
	return r.EditErr
}

// FollowUp records a follow-up message.
func (r *RecordingResponder) FollowUp(ctx context.Context, reply *core.Reply) error {
	r.record("followup", reply, false)
	return r.FollowUpErr
}

// Calls returns a copy of all recorded calls in order.
func (r *RecordingResponder) Calls() []ResponderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResponderCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops returns just the operation names, in order.
func (r *RecordingResponder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.calls))
	for i, c := range r.calls {
		ops[i] = c.Op
	}
	return ops
}

// LastReply returns the payload of the most recent content-bearing call, or
// nil when none exists.
func (r *RecordingResponder) LastReply() *core.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Reply != nil {
			return r.calls[i].Reply
		}
	}
	return nil
}

var _ core.Responder = (*RecordingResponder)(nil)
