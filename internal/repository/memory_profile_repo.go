package repository

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// MemoryProfileRepository implements ProfileRepository in process memory.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
}

var _ ProfileRepository = (*MemoryProfileRepository)(nil)
var _ ProfileRepository = (*GormProfileRepository)(nil)

// NewMemoryProfileRepository creates an empty in-memory repository.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*domain.Profile)}
}

// GetProfile returns a copy of the stored profile.
func (r *MemoryProfileRepository) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return copyProfile(p), nil
}

func (r *MemoryProfileRepository) SaveOriginalImage(_ context.Context, userID string, data []byte) error {
	r.update(userID, func(p *domain.Profile) {
		p.OriginalImage = bytes.Clone(data)
	})
	return nil
}

func (r *MemoryProfileRepository) SaveResizedImages(_ context.Context, userID string, images map[domain.ImageSize][]byte) error {
	for size := range images {
		if _, err := domain.ParseImageSize(string(size)); err != nil {
			return err
		}
	}
	r.update(userID, func(p *domain.Profile) {
		for size, data := range images {
			p.SetImageData(size, bytes.Clone(data))
		}
	})
	return nil
}

func (r *MemoryProfileRepository) CacheImage(_ context.Context, userID string, size domain.ImageSize, data []byte) error {
	if _, err := domain.ParseImageSize(string(size)); err != nil {
		return err
	}
	r.update(userID, func(p *domain.Profile) {
		p.SetImageData(size, bytes.Clone(data))
	})
	return nil
}

func (r *MemoryProfileRepository) CommitAssetIDs(_ context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error {
	for size := range images {
		if _, err := domain.ParseImageSize(string(size)); err != nil {
			return err
		}
	}
	r.update(userID, func(p *domain.Profile) {
		p.PreviewAssetID = previewAssetID
		p.CompleteAssetID = completeAssetID
		for size, data := range images {
			p.SetImageData(size, bytes.Clone(data))
		}
	})
	return nil
}

func (r *MemoryProfileRepository) update(userID string, fn func(p *domain.Profile)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		r.profiles[userID] = p
	}
	fn(p)
	p.UpdatedAt = time.Now()
}

func copyProfile(p *domain.Profile) *domain.Profile {
	cp := *p
	cp.OriginalImage = bytes.Clone(p.OriginalImage)
	cp.PreviewImage = bytes.Clone(p.PreviewImage)
	cp.CompleteImage = bytes.Clone(p.CompleteImage)
	return &cp
}
