package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/mq"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
)

func TestMulti_NotifiesInOrder(t *testing.T) {
	var calls []string
	m := Multi{recorder{"a", &calls}, recorder{"b", &calls}}
	ctx := context.Background()

	m.ImageStateChanged(ctx, domain.ImageSizePreview, domain.ReadyImage(), domain.PreprocessingImage())
	m.ProfileStateChanged(ctx, domain.ReadyProfile(), domain.PreprocessProfile([]byte("x")))

	assert.Equal(t, []string{
		"a:preview:preprocessing",
		"b:preview:preprocessing",
		"a:profile:preprocess",
		"b:profile:preprocess",
	}, calls)
}

func TestPubSubDelegate_PublishesInOrder(t *testing.T) {
	ps := pubsub.NewMemoryPubSub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := ps.Subscribe(ctx, pubsub.ProfileImageStateChannel("user-1"))
	require.NoError(t, err)

	d := NewPubSubDelegate(ps, "user-1", 8)
	d.ImageStateChanged(ctx, domain.ImageSizeComplete, domain.UploadingImage(), domain.FailedImage(errors.New("boom")))
	d.ImageStateChanged(ctx, domain.ImageSizeComplete, domain.FailedImage(errors.New("boom")), domain.ReadyImage())
	d.ProfileStateChanged(ctx, domain.PreprocessProfile(nil), domain.FailedProfile(errors.New("boom")))
	d.Close()

	var got []*pubsub.Event
	for len(got) < 3 {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("received %d of 3 events", len(got))
		}
	}

	var first pubsub.ImageStatePayload
	require.NoError(t, got[0].UnmarshalPayload(&first))
	assert.Equal(t, pubsub.EventImageStateChanged, got[0].Type)
	assert.Equal(t, "complete", first.Size)
	assert.Equal(t, "uploading", first.From)
	assert.Equal(t, "failed", first.To)
	assert.Equal(t, "boom", first.Error)

	var second pubsub.ImageStatePayload
	require.NoError(t, got[1].UnmarshalPayload(&second))
	assert.Equal(t, "ready", second.To)
	assert.Empty(t, second.Error)

	var third pubsub.ProfileStatePayload
	require.NoError(t, got[2].UnmarshalPayload(&third))
	assert.Equal(t, pubsub.EventProfileStateChanged, got[2].Type)
	assert.Equal(t, "failed", third.To)
}

// gatedPublisher blocks every Publish until release is closed.
type gatedPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *gatedPublisher) Publish(_ context.Context, _ string, _ *pubsub.Event) error {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-p.release
	return nil
}

func TestPubSubDelegate_CountsDropsWhenQueueStaysFull(t *testing.T) {
	ctx := context.Background()
	pub := &gatedPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewPubSubDelegate(pub, "user-1", 1)
	d.enqueueTimeout = 10 * time.Millisecond

	d.ProfileStateChanged(ctx, domain.ReadyProfile(), domain.PreprocessProfile(nil))
	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("publisher never called")
	}
	d.ImageStateChanged(ctx, domain.ImageSizePreview, domain.ReadyImage(), domain.PreprocessingImage())
	d.ImageStateChanged(ctx, domain.ImageSizeComplete, domain.ReadyImage(), domain.PreprocessingImage())

	assert.Equal(t, uint64(1), d.Dropped())

	close(pub.release)
	d.Close()
}

func TestPubSubDelegate_ReportAfterCloseIsDropped(t *testing.T) {
	ctx := context.Background()
	d := NewPubSubDelegate(pubsub.NewMemoryPubSub(), "user-1", 4)
	d.Close()

	assert.NotPanics(t, func() {
		d.ProfileStateChanged(ctx, domain.ReadyProfile(), domain.PreprocessProfile(nil))
	})
	assert.Equal(t, uint64(1), d.Dropped())
	assert.NotPanics(t, d.Close)
}

func TestCommitDelegate_PublishesOnUpdate(t *testing.T) {
	pub := new(MockPublisher)
	d := NewCommitDelegate(pub, "user-1")
	d.now = func() time.Time { return time.Unix(1700000000, 0) }

	pub.On("PublishProfileImageUpdated", mock.Anything, &mq.ProfileImageUpdatedEvent{
		UserID:    "user-1",
		Assets:    mq.ProfileImageAssets{Preview: "id1", Complete: "id2"},
		Timestamp: 1700000000,
	}).Return(nil).Once()

	ctx := context.Background()
	d.ProfileStateChanged(ctx, domain.PreprocessProfile(nil), domain.UpdateProfile("id1", "id2"))
	d.ProfileStateChanged(ctx, domain.UpdateProfile("id1", "id2"), domain.ReadyProfile())
	d.ImageStateChanged(ctx, domain.ImageSizePreview, domain.UploadedImage("id1"), domain.ReadyImage())

	pub.AssertExpectations(t)
}

func TestCommitDelegate_IgnoresFailure(t *testing.T) {
	pub := new(MockPublisher)
	d := NewCommitDelegate(pub, "user-1")

	d.ProfileStateChanged(context.Background(), domain.PreprocessProfile(nil), domain.FailedProfile(domain.ErrPreprocessingFailed))

	pub.AssertNotCalled(t, "PublishProfileImageUpdated", mock.Anything, mock.Anything)
}

func TestLogDelegate_DoesNotPanic(t *testing.T) {
	d := NewLogDelegate("user-1")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		d.ImageStateChanged(ctx, domain.ImageSizePreview, domain.UploadingImage(), domain.FailedImage(errors.New("x")))
		d.ProfileStateChanged(ctx, domain.ReadyProfile(), domain.FailedProfile(errors.New("x")))
	})
}
