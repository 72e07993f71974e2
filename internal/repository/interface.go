package repository

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// ProfileRepository persists the self user's profile image record.
// GetProfile returns domain.ErrProfileNotFound when no record exists.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	SaveOriginalImage(ctx context.Context, userID string, data []byte) error
	SaveResizedImages(ctx context.Context, userID string, images map[domain.ImageSize][]byte) error
	// CommitAssetIDs writes the asset ids and, when images is non-nil, the
	// resized bytes they were uploaded from, in one write.
	CommitAssetIDs(ctx context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error
	CacheImage(ctx context.Context, userID string, size domain.ImageSize, data []byte) error
}
