package notifier

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/upload"
)

// Multi notifies every delegate synchronously in registration order.
type Multi []upload.StateChangeDelegate

var _ upload.StateChangeDelegate = Multi(nil)

func (m Multi) ImageStateChanged(ctx context.Context, size domain.ImageSize, from, to domain.ImageState) {
	for _, d := range m {
		d.ImageStateChanged(ctx, size, from, to)
	}
}

func (m Multi) ProfileStateChanged(ctx context.Context, from, to domain.ProfileUpdateState) {
	for _, d := range m {
		d.ProfileStateChanged(ctx, from, to)
	}
}
