package participant

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ConnectionState is a user's place in a call.
type ConnectionState int

const (
	NotConnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Connecting:
		return "connecting"
	default:
		return "not_connected"
	}
}

// Observer receives the change set of every participant list change.
type Observer interface {
	ParticipantsChanged(ctx context.Context, conversationID uuid.UUID, members []Member, change ChangeSet)
}

// Snapshot tracks the participant list of one call.
type Snapshot struct {
	mu             sync.Mutex
	conversationID uuid.UUID
	members        []Member
	observer       Observer
}

// NewSnapshot records members and reports them to observer as all inserted.
func NewSnapshot(ctx context.Context, conversationID uuid.UUID, members []Member, observer Observer) *Snapshot {
	s := &Snapshot{
		conversationID: conversationID,
		members:        cloneMembers(members),
		observer:       observer,
	}

	initial := Reconcile(nil, s.members)
	if observer != nil {
		observer.ParticipantsChanged(ctx, conversationID, cloneMembers(s.members), initial)
	}
	return s
}

// Update replaces the list and notifies the observer unless nothing changed.
func (s *Snapshot) Update(ctx context.Context, members []Member) ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneMembers(members)
	change := Reconcile(s.members, next)
	s.members = next

	if !change.Empty() && s.observer != nil {
		s.observer.ParticipantsChanged(ctx, s.conversationID, cloneMembers(next), change)
	}
	return change
}

// Members returns a copy of the current list.
func (s *Snapshot) Members() []Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMembers(s.members)
}

// ConnectionState reports NotConnected for an absent user, Connected once
// audio is established and Connecting before that.
func (s *Snapshot) ConnectionState(userID uuid.UUID) ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if m.AudioEstablished {
			return Connected
		}
		return Connecting
	}
	return NotConnected
}

func cloneMembers(members []Member) []Member {
	if members == nil {
		return []Member{}
	}
	out := make([]Member, len(members))
	copy(out, members)
	return out
}
