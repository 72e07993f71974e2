package upload

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

// MockProfileStore is a testify mock of ProfileStore.
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*domain.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) SaveOriginalImage(ctx context.Context, userID string, data []byte) error {
	return m.Called(ctx, userID, data).Error(0)
}

func (m *MockProfileStore) SaveResizedImages(ctx context.Context, userID string, images map[domain.ImageSize][]byte) error {
	return m.Called(ctx, userID, images).Error(0)
}

func (m *MockProfileStore) CommitAssetIDs(ctx context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error {
	return m.Called(ctx, userID, previewAssetID, completeAssetID, images).Error(0)
}

// fakeStore keeps profiles in memory.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*domain.Profile)}
}

func (s *fakeStore) profile(userID string) *domain.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		s.profiles[userID] = p
	}
	return p
}

func (s *fakeStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SaveOriginalImage(_ context.Context, userID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(userID).OriginalImage = data
	return nil
}

func (s *fakeStore) SaveResizedImages(_ context.Context, userID string, images map[domain.ImageSize][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile(userID)
	for size, data := range images {
		p.SetImageData(size, data)
	}
	return nil
}

func (s *fakeStore) CommitAssetIDs(_ context.Context, userID, previewAssetID, completeAssetID string, images map[domain.ImageSize][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile(userID)
	p.PreviewAssetID = previewAssetID
	p.CompleteAssetID = completeAssetID
	for size, data := range images {
		p.SetImageData(size, data)
	}
	return nil
}

// syncRunner runs tasks inline.
type syncRunner struct{}

func (syncRunner) Add(_ string, fn func(ctx context.Context)) {
	fn(context.Background())
}

// queuedRunner holds tasks until run is called.
type queuedRunner struct {
	tasks []func(ctx context.Context)
}

func (r *queuedRunner) Add(_ string, fn func(ctx context.Context)) {
	r.tasks = append(r.tasks, fn)
}

func (r *queuedRunner) run() {
	tasks := r.tasks
	r.tasks = nil
	for _, fn := range tasks {
		fn(context.Background())
	}
}

type transition struct {
	size        domain.ImageSize
	fromImage   domain.ImageState
	toImage     domain.ImageState
	fromProfile domain.ProfileUpdateState
	toProfile   domain.ProfileUpdateState
}

// recorder captures every notification in delivery order.
type recorder struct {
	events []transition
}

func (r *recorder) ImageStateChanged(_ context.Context, size domain.ImageSize, from, to domain.ImageState) {
	r.events = append(r.events, transition{size: size, fromImage: from, toImage: to})
}

func (r *recorder) ProfileStateChanged(_ context.Context, from, to domain.ProfileUpdateState) {
	r.events = append(r.events, transition{fromProfile: from, toProfile: to})
}

func (r *recorder) reset() {
	r.events = nil
}

func (r *recorder) imagePhases(size domain.ImageSize) []domain.ImagePhase {
	var phases []domain.ImagePhase
	for _, e := range r.events {
		if e.size == size {
			phases = append(phases, e.toImage.Phase)
		}
	}
	return phases
}

func (r *recorder) profileStates() []domain.ProfileUpdateState {
	var states []domain.ProfileUpdateState
	for _, e := range r.events {
		if e.size == "" {
			states = append(states, e.toProfile)
		}
	}
	return states
}

func (r *recorder) profilePhases() []domain.ProfilePhase {
	var phases []domain.ProfilePhase
	for _, s := range r.profileStates() {
		phases = append(phases, s.Phase)
	}
	return phases
}
