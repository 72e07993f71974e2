package transport

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/keygen"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/storage"
)

// Uploader sends claimed bytes for a size and returns the server asset id.
type Uploader interface {
	Upload(ctx context.Context, size domain.ImageSize, data []byte) (string, error)
}

// Downloader fetches previously uploaded assets.
type Downloader interface {
	Download(ctx context.Context, assetID string) ([]byte, error)
	URL(ctx context.Context, assetID string) (string, error)
}

// Transport uploads and downloads profile image assets.
type Transport interface {
	Uploader
	Downloader
}

// New creates the transport named by cfg.Type. st is only used by the "storage" type.
func New(cfg config.TransportConfig, ownerID string, st storage.Storage) (Transport, error) {
	switch cfg.Type {
	case "http":
		return NewAssetClient(cfg)
	case "", "storage":
		if st == nil {
			return nil, fmt.Errorf("storage transport requires a storage backend")
		}
		gen, err := keygen.New(cfg.KeyGenerator)
		if err != nil {
			return nil, err
		}
		return NewStorageUploader(st, gen, ownerID, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}
