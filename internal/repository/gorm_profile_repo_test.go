package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/database"
)

func newSQLiteRepo(t *testing.T) *GormProfileRepository {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     filepath.Join(t.TempDir(), "profile.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.ProfileImageModel{}))
	return NewGormProfileRepository(db)
}

func TestGormProfileRepository_NotFound(t *testing.T) {
	repo := newSQLiteRepo(t)

	_, err := repo.GetProfile(context.Background(), "user-1")

	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestGormProfileRepository_Upserts(t *testing.T) {
	// Arrange
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	// Act
	require.NoError(t, repo.SaveOriginalImage(ctx, "user-1", []byte("original")))
	require.NoError(t, repo.SaveResizedImages(ctx, "user-1", map[domain.ImageSize][]byte{
		domain.ImageSizePreview:  []byte("p"),
		domain.ImageSizeComplete: []byte("c"),
	}))
	require.NoError(t, repo.CommitAssetIDs(ctx, "user-1", "asset-p", "asset-c", nil))
	require.NoError(t, repo.CacheImage(ctx, "user-1", domain.ImageSizePreview, []byte("p2")))

	// Assert
	p, err := repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), p.OriginalImage)
	assert.Equal(t, []byte("p2"), p.PreviewImage)
	assert.Equal(t, []byte("c"), p.CompleteImage)
	assert.Equal(t, "asset-p", p.PreviewAssetID)
	assert.Equal(t, "asset-c", p.CompleteAssetID)
}

func TestGormProfileRepository_UnknownSize(t *testing.T) {
	repo := newSQLiteRepo(t)

	err := repo.CacheImage(context.Background(), "user-1", domain.ImageSize("huge"), []byte("x"))

	assert.ErrorIs(t, err, domain.ErrUnknownImageSize)
}
