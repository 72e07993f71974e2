package pubsub

import (
	"context"
	"sync"
)

// MemoryPubSub implements PubSub inside a single process.
type MemoryPubSub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *Event]struct{}
	closed      bool
}

// NewMemoryPubSub creates an in-process PubSub.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subscribers: make(map[string]map[chan *Event]struct{})}
}

// Publish delivers event to every current subscriber of channel.
// Subscribers whose buffer is full miss the event.
func (m *MemoryPubSub) Publish(_ context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber that lives until ctx is cancelled.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	ch := make(chan *Event, 100)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if m.subscribers[channel] == nil {
		m.subscribers[channel] = make(map[chan *Event]struct{})
	}
	m.subscribers[channel][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.remove(channel, ch)
	}()

	return ch, nil
}

func (m *MemoryPubSub) remove(channel string, ch chan *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(m.subscribers, channel)
	}
	close(ch)
}

// Close closes every subscriber channel.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for channel, subs := range m.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	m.closed = true
	return nil
}
