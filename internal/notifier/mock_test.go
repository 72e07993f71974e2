package notifier

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/mq"
)

// MockPublisher is a mock implementation of mq.ProfileEventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProfileImageUpdated(ctx context.Context, event *mq.ProfileImageUpdatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recorder appends a tag per call so ordering across delegates can be checked.
type recorder struct {
	name string
	log  *[]string
}

func (r recorder) ImageStateChanged(_ context.Context, size domain.ImageSize, _, to domain.ImageState) {
	*r.log = append(*r.log, r.name+":"+size.String()+":"+to.Phase.String())
}

func (r recorder) ProfileStateChanged(_ context.Context, _, to domain.ProfileUpdateState) {
	*r.log = append(*r.log, r.name+":profile:"+to.Phase.String())
}
