package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// GormProfileRepository implements ProfileRepository using GORM.
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM-based profile repository.
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// GetProfile retrieves the profile image record of userID.
func (r *GormProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var model domain.ProfileImageModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// SaveOriginalImage stores the original bytes of the latest update.
func (r *GormProfileRepository) SaveOriginalImage(ctx context.Context, userID string, data []byte) error {
	return r.upsert(ctx, userID, map[string]interface{}{"original_image": data})
}

// SaveResizedImages caches the resized bytes for reupload.
func (r *GormProfileRepository) SaveResizedImages(ctx context.Context, userID string, images map[domain.ImageSize][]byte) error {
	columns := make(map[string]interface{}, len(images))
	for size, data := range images {
		column, err := imageColumn(size)
		if err != nil {
			return err
		}
		columns[column] = data
	}
	return r.upsert(ctx, userID, columns)
}

// CacheImage stores downloaded bytes for a single size.
func (r *GormProfileRepository) CacheImage(ctx context.Context, userID string, size domain.ImageSize, data []byte) error {
	column, err := imageColumn(size)
	if err != nil {
		return err
	}
	return r.upsert(ctx, userID, map[string]interface{}{column: data})
}

// CommitAssetIDs records the asset ids of a completed update and the bytes they came from.
func (r *GormProfileRepository) CommitAssetIDs(ctx context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error {
	columns := map[string]interface{}{
		"preview_asset_id":  previewAssetID,
		"complete_asset_id": completeAssetID,
	}
	for size, data := range images {
		column, err := imageColumn(size)
		if err != nil {
			return err
		}
		columns[column] = data
	}
	return r.upsert(ctx, userID, columns)
}

// upsert creates the row for userID if needed and sets columns on it.
func (r *GormProfileRepository) upsert(ctx context.Context, userID string, columns map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.ProfileImageModel{UserID: userID})
		if result.Error != nil {
			return fmt.Errorf("create profile row: %w", result.Error)
		}

		result = tx.Model(&domain.ProfileImageModel{}).
			Where("user_id = ?", userID).
			Updates(columns)
		if result.Error != nil {
			return fmt.Errorf("update profile row: %w", result.Error)
		}
		return nil
	})
}

func imageColumn(size domain.ImageSize) (string, error) {
	switch size {
	case domain.ImageSizePreview:
		return "preview_image", nil
	case domain.ImageSizeComplete:
		return "complete_image", nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownImageSize, size)
	}
}
