package upload

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// Preprocessor resizes an original image into one payload per image size.
type Preprocessor interface {
	Preprocess(ctx context.Context, ownerID string, original []byte) (map[domain.ImageSize][]byte, error)
}

// PreprocessorFunc adapts a function to Preprocessor.
type PreprocessorFunc func(ctx context.Context, ownerID string, original []byte) (map[domain.ImageSize][]byte, error)

func (f PreprocessorFunc) Preprocess(ctx context.Context, ownerID string, original []byte) (map[domain.ImageSize][]byte, error) {
	return f(ctx, ownerID, original)
}

// Runner executes background work outside the coordinator lock.
type Runner interface {
	Add(description string, fn func(ctx context.Context))
}

// ProfileStore persists committed asset ids and the cached image bytes.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	SaveOriginalImage(ctx context.Context, userID string, data []byte) error
	SaveResizedImages(ctx context.Context, userID string, images map[domain.ImageSize][]byte) error
	// CommitAssetIDs records the asset ids of a completed update together with
	// the resized bytes they were uploaded from. images may be nil.
	CommitAssetIDs(ctx context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error
}

// Claim identifies one consumed payload. A result reported with an older
// claim than the current one for its size is dropped.
type Claim uint64

// StateChangeDelegate observes every accepted transition, in order.
// It is called with the coordinator lock held and must not call back into it.
type StateChangeDelegate interface {
	ImageStateChanged(ctx context.Context, size domain.ImageSize, from, to domain.ImageState)
	ProfileStateChanged(ctx context.Context, from, to domain.ProfileUpdateState)
}

type nopDelegate struct{}

func (nopDelegate) ImageStateChanged(context.Context, domain.ImageSize, domain.ImageState, domain.ImageState) {
}

func (nopDelegate) ProfileStateChanged(context.Context, domain.ProfileUpdateState, domain.ProfileUpdateState) {
}
