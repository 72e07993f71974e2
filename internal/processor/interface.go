package processor

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// ImageProcessor resizes an original profile image into every configured size.
// It satisfies upload.Preprocessor.
type ImageProcessor interface {
	Preprocess(ctx context.Context, ownerID string, original []byte) (map[domain.ImageSize][]byte, error)
}
