package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/keygen"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/storage"
)

// StorageUploader writes assets straight to object storage; the asset id is the object key.
type StorageUploader struct {
	storage      storage.Storage
	keys         keygen.Generator
	ownerID      string
	keyPrefix    string
	maxAssetSize int64
	urlExpiry    time.Duration
}

var _ Transport = (*StorageUploader)(nil)

func NewStorageUploader(st storage.Storage, keys keygen.Generator, ownerID string, cfg config.TransportConfig) *StorageUploader {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &StorageUploader{
		storage:      st,
		keys:         keys,
		ownerID:      ownerID,
		keyPrefix:    cfg.KeyPrefix,
		maxAssetSize: cfg.MaxAssetSize,
		urlExpiry:    expiry,
	}
}

// Upload stores data under {prefix}{owner}/{id}/{size}.jpg.
func (u *StorageUploader) Upload(ctx context.Context, size domain.ImageSize, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidLength
	}
	if u.maxAssetSize > 0 && int64(len(data)) > u.maxAssetSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrAssetTooLarge, len(data), u.maxAssetSize)
	}

	id, err := u.keys.Generate()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	key := fmt.Sprintf("%s%s/%s/%s.jpg", u.keyPrefix, u.ownerID, id, size)

	if err := u.storage.Write(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		return "", fmt.Errorf("write %s: %w", size, err)
	}

	l := pkglog.Ctx(ctx)
	l.Info().
		Str(pkglog.FieldImageSize, size.String()).
		Str(pkglog.FieldAssetID, key).
		Msg("stored profile image asset")

	return key, nil
}

func (u *StorageUploader) Download(ctx context.Context, assetID string) ([]byte, error) {
	if err := u.checkKey(assetID); err != nil {
		return nil, err
	}
	rc, err := u.storage.Read(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("read asset: %w", err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (u *StorageUploader) URL(ctx context.Context, assetID string) (string, error) {
	if err := u.checkKey(assetID); err != nil {
		return "", err
	}
	return u.storage.GetURL(ctx, assetID, u.urlExpiry)
}

// checkKey rejects asset ids that were not produced by Upload for this owner.
func (u *StorageUploader) checkKey(assetID string) error {
	rest, ok := strings.CutPrefix(assetID, u.keyPrefix+u.ownerID+"/")
	if !ok {
		return fmt.Errorf("%w: %q is outside %s%s/", ErrAssetNotFound, assetID, u.keyPrefix, u.ownerID)
	}
	id, file, ok := strings.Cut(rest, "/")
	if !ok {
		return fmt.Errorf("%w: malformed key %q", ErrAssetNotFound, assetID)
	}
	if _, err := domain.ParseImageSize(strings.TrimSuffix(file, ".jpg")); err != nil || !strings.HasSuffix(file, ".jpg") {
		return fmt.Errorf("%w: malformed key %q", ErrAssetNotFound, assetID)
	}
	if valid, reason := u.keys.Validate(id); !valid {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, reason)
	}
	return nil
}
