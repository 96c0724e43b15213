package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Outcome is the settlement of a pending request: either the responder's
// value or the reason the request will never complete.
type Outcome struct {
	Value json.RawMessage
	Err   error
}

// Registry correlates in-flight request packet ids with one-shot completion
// slots. The requester opens a slot before sending; the session reader
// settles it when the matching response arrives. Settlement is at-most-once:
// the slot is removed under the lock before delivery, so a second settle on
// the same id — or a settle racing a cancellation — is a silent no-op.
type Registry struct {
	mu    sync.Mutex
	slots map[string]chan Outcome
}

// NewRegistry creates an empty pending registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[string]chan Outcome),
	}
}

// Open allocates a fresh packet id and a completion slot for it. The channel
// has capacity one, so a settlement that arrives before the caller starts
// waiting is retained rather than lost.
func (r *Registry) Open() (string, <-chan Outcome) {
	id := uuid.New().String()
	ch := make(chan Outcome, 1)

	r.mu.Lock()
	r.slots[id] = ch
	r.mu.Unlock()

	return id, ch
}

// Settle fulfills the slot for id. An unknown id is a silent no-op: it may
// belong to a request that was concurrently cancelled, or to a stale reply
// from the peer.
func (r *Registry) Settle(id string, out Outcome) {
	r.mu.Lock()
	ch, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	r.mu.Unlock()

	if ok {
		ch <- out
	}
}

// Forget abandons the slot for id without settling it. Used when the caller
// stops waiting; a late response for the id is then silently discarded.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}

// CancelAll settles every outstanding slot with err. Called when the
// connection is lost or the session shuts down.
func (r *Registry) CancelAll(err error) {
	r.mu.Lock()
	slots := r.slots
	r.slots = make(map[string]chan Outcome)
	r.mu.Unlock()

	for _, ch := range slots {
		ch <- Outcome{Err: err}
	}
}

// Len reports the number of outstanding slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Await blocks until the slot delivers an outcome or the context is
// cancelled. Cancellation forgets the slot so the registry does not grow.
func (r *Registry) Await(ctx context.Context, id string, ch <-chan Outcome) (json.RawMessage, error) {
	select {
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Err
		}
		return out.Value, nil
	case <-ctx.Done():
		r.Forget(id)
		return nil, ctx.Err()
	}
}
