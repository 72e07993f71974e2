package participant

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry keeps one Snapshot per conversation.
type Registry struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*Snapshot
	observer  Observer
}

func NewRegistry(observer Observer) *Registry {
	return &Registry{snapshots: make(map[uuid.UUID]*Snapshot), observer: observer}
}

// Replace sets the participant list of a call. The first list of a call is
// reported as all inserted.
func (r *Registry) Replace(ctx context.Context, conversationID uuid.UUID, members []Member) ChangeSet {
	r.mu.Lock()
	s, ok := r.snapshots[conversationID]
	if !ok {
		s = NewSnapshot(ctx, conversationID, members, r.observer)
		r.snapshots[conversationID] = s
		r.mu.Unlock()
		return Reconcile(nil, members)
	}
	r.mu.Unlock()

	return s.Update(ctx, members)
}

// Snapshot returns the snapshot of a call, if any.
func (r *Registry) Snapshot(conversationID uuid.UUID) (*Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[conversationID]
	return s, ok
}

// Remove forgets a call.
func (r *Registry) Remove(conversationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, conversationID)
}
