package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
)

type outgoing struct {
	ctx   context.Context
	event *pubsub.Event
}

const defaultEnqueueTimeout = 250 * time.Millisecond

// PubSubDelegate publishes transitions on the user's profile image channel.
// Events are queued and published by one goroutine, so they keep their order
// and the coordinator lock is never held across a network call.
type PubSubDelegate struct {
	publisher pubsub.Publisher
	userID    string
	channel   string

	// enqueueTimeout bounds how long a transition waits for room in a full queue.
	enqueueTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan outgoing
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// NewPubSubDelegate starts the publishing goroutine. Call Close to drain it.
func NewPubSubDelegate(publisher pubsub.Publisher, userID string, bufferSize int) *PubSubDelegate {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	d := &PubSubDelegate{
		publisher: publisher,
		userID:    userID,
		channel:   pubsub.ProfileImageStateChannel(userID),
		queue:     make(chan outgoing, bufferSize),

		enqueueTimeout: defaultEnqueueTimeout,
	}

	d.wg.Add(1)
	go d.run()
	return d
}

func (d *PubSubDelegate) ImageStateChanged(ctx context.Context, size domain.ImageSize, from, to domain.ImageState) {
	d.enqueue(ctx, pubsub.EventImageStateChanged, pubsub.ImageStatePayload{
		UserID: d.userID,
		Size:   size.String(),
		From:   from.Phase.String(),
		To:     to.Phase.String(),
		Error:  errString(to.Err),
	})
}

func (d *PubSubDelegate) ProfileStateChanged(ctx context.Context, from, to domain.ProfileUpdateState) {
	d.enqueue(ctx, pubsub.EventProfileStateChanged, pubsub.ProfileStatePayload{
		UserID: d.userID,
		From:   from.Phase.String(),
		To:     to.Phase.String(),
		Error:  errString(to.Err),
	})
}

func (d *PubSubDelegate) enqueue(ctx context.Context, eventType string, payload interface{}) {
	l := pkglog.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, d.userID, payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build state event")
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, eventType, "state event delegate closed, dropping event")
		return
	}

	// The request context may end before the queued event is published.
	out := outgoing{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case d.queue <- out:
		return
	default:
	}

	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()
	select {
	case d.queue <- out:
	case <-timer.C:
		d.drop(ctx, eventType, "state event queue full, dropping event")
	}
}

func (d *PubSubDelegate) drop(ctx context.Context, eventType, msg string) {
	total := d.dropped.Add(1)
	l := pkglog.Ctx(ctx)
	l.Warn().Str("event_type", eventType).Uint64("dropped_total", total).Msg(msg)
}

// Dropped returns how many events were discarded because the queue stayed
// full or the delegate was closed.
func (d *PubSubDelegate) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *PubSubDelegate) run() {
	defer d.wg.Done()

	for out := range d.queue {
		if err := d.publisher.Publish(out.ctx, d.channel, out.event); err != nil {
			l := pkglog.Ctx(out.ctx)
			l.Error().Err(err).Str("channel", d.channel).Str("event_type", out.event.Type).Msg("failed to publish state event")
		}
	}
}

// Close publishes what is queued and stops the goroutine. Transitions
// reported after Close are dropped.
func (d *PubSubDelegate) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
