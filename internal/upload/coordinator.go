package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// Coordinator drives the profile image update of one user session: one
// state machine per image size plus the aggregate update state.
//
// Every public operation runs under a single mutex, so a transition and
// the cascade it triggers are applied atomically.
type Coordinator struct {
	mu sync.Mutex

	userID       string
	preprocessor Preprocessor
	runner       Runner
	store        ProfileStore
	delegate     StateChangeDelegate

	images  map[domain.ImageSize]domain.ImageState
	profile domain.ProfileUpdateState
	cycle   uint64

	// resized holds the payloads of the cycle in flight until commit.
	resized   map[domain.ImageSize][]byte
	claims    map[domain.ImageSize]Claim
	lastClaim Claim

	requestAvailable chan struct{}
}

// NewCoordinator creates a Coordinator for userID. A nil delegate is allowed.
func NewCoordinator(userID string, preprocessor Preprocessor, runner Runner, store ProfileStore, delegate StateChangeDelegate) *Coordinator {
	if delegate == nil {
		delegate = nopDelegate{}
	}

	images := make(map[domain.ImageSize]domain.ImageState, len(domain.ImageSizes()))
	for _, size := range domain.ImageSizes() {
		images[size] = domain.ReadyImage()
	}

	return &Coordinator{
		userID:           userID,
		preprocessor:     preprocessor,
		runner:           runner,
		store:            store,
		delegate:         delegate,
		images:           images,
		claims:           make(map[domain.ImageSize]Claim, len(images)),
		profile:          domain.ReadyProfile(),
		requestAvailable: make(chan struct{}, 1),
	}
}

// UserID returns the id of the user whose profile image is coordinated.
func (c *Coordinator) UserID() string {
	return c.userID
}

// RequestAvailable receives a value whenever a size enters PendingUpload.
// Signals coalesce: one pending value may stand for several payloads.
func (c *Coordinator) RequestAvailable() <-chan struct{} {
	return c.requestAvailable
}

// ImageState returns the current state of size.
func (c *Coordinator) ImageState(size domain.ImageSize) domain.ImageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images[size]
}

// ProfileState returns the current aggregate state.
func (c *Coordinator) ProfileState() domain.ProfileUpdateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// States returns the aggregate state and every size state from one critical section.
func (c *Coordinator) States() (domain.ProfileUpdateState, map[domain.ImageSize]domain.ImageState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	images := make(map[domain.ImageSize]domain.ImageState, len(c.images))
	for size, state := range c.images {
		images[size] = state
	}
	return c.profile, images
}

// UpdateImage starts a new update cycle for the original image data.
// Any cycle still in flight is superseded first.
func (c *Coordinator) UpdateImage(ctx context.Context, data []byte) {
	data = bytes.Clone(data)
	cycle := c.beginCycle(ctx, data)

	c.runner.Add("preprocess profile image", func(ctx context.Context) {
		images, err := c.preprocessor.Preprocess(ctx, c.userID, data)
		c.preprocessingCompleted(ctx, cycle, images, err)
	})
}

func (c *Coordinator) beginCycle(ctx context.Context, data []byte) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede(ctx)
	c.cycle++
	c.resized = nil

	l := log.Ctx(ctx)
	if err := c.store.SaveOriginalImage(ctx, c.userID, data); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, c.userID).Msg("failed to store original profile image")
	}

	c.setProfileState(ctx, domain.PreprocessProfile(data))
	for _, size := range domain.ImageSizes() {
		c.setImageState(ctx, size, domain.PreprocessingImage())
	}

	l.Info().Uint64(log.FieldCycle, c.cycle).Int("bytes", len(data)).Msg("profile image update started")
	return c.cycle
}

// UpdatePreprocessedImages queues already resized images for upload,
// skipping the preprocessing phase.
func (c *Coordinator) UpdatePreprocessedImages(ctx context.Context, preview, complete []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede(ctx)
	c.cycle++

	images := map[domain.ImageSize][]byte{
		domain.ImageSizePreview:  bytes.Clone(preview),
		domain.ImageSizeComplete: bytes.Clone(complete),
	}
	if err := checkImages(images); err != nil {
		c.setProfileState(ctx, domain.FailedProfile(err))
		return
	}

	c.stageResizedImages(ctx, images)
	for _, size := range domain.ImageSizes() {
		c.setImageState(ctx, size, domain.PendingUploadImage(images[size]))
	}
}

// ReuploadExistingImageIfNeeded re-queues the cached resized images when the
// profile has them but is missing a committed asset id. It does nothing
// while an update is in flight.
func (c *Coordinator) ReuploadExistingImageIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := log.Ctx(ctx)
	if !c.idle() {
		l.Debug().Msg("reupload skipped: update in flight")
		return nil
	}

	profile, err := c.store.GetProfile(ctx, c.userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil
		}
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.HasAssetIDs() || !profile.HasCachedImages() {
		return nil
	}

	l.Info().Str(log.FieldUserID, c.userID).Msg("re-uploading cached profile image")
	c.resized = make(map[domain.ImageSize][]byte, len(domain.ImageSizes()))
	for _, size := range domain.ImageSizes() {
		c.resized[size] = profile.ImageData(size)
	}
	for _, size := range domain.ImageSizes() {
		c.setImageState(ctx, size, domain.PendingUploadImage(profile.ImageData(size)))
	}
	return nil
}

// SetImageState requests a transition of size. Illegal transitions are ignored.
func (c *Coordinator) SetImageState(ctx context.Context, size domain.ImageSize, state domain.ImageState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.images[size]; !ok {
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldImageSize, string(size)).Msg("ignored transition for unknown image size")
		return
	}
	c.setImageState(ctx, size, state)
}

// SetProfileState requests an aggregate transition. Illegal transitions are
// ignored, and Update is only accepted while every size is Uploaded.
func (c *Coordinator) SetProfileState(ctx context.Context, state domain.ProfileUpdateState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.Phase == domain.ProfileUpdate {
		if _, _, ok := c.uploadedAssetIDs(); !ok {
			l := log.Ctx(ctx)
			l.Debug().Stringer(log.FieldTo, state.Phase).Msg("ignored update: images not uploaded")
			return
		}
	}
	c.setProfileState(ctx, state)
}

// HasImageToUpload reports whether size holds an unclaimed payload.
func (c *Coordinator) HasImageToUpload(size domain.ImageSize) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images[size].Phase == domain.ImagePendingUpload
}

// ConsumeImage claims the pending payload of size and moves it to Uploading.
// The returned Claim must be passed back with the upload result. It returns
// false when nothing is pending.
func (c *Coordinator) ConsumeImage(ctx context.Context, size domain.ImageSize) ([]byte, Claim, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.images[size]
	if !ok || current.Phase != domain.ImagePendingUpload {
		return nil, 0, false
	}
	c.setImageState(ctx, size, domain.UploadingImage())
	c.lastClaim++
	c.claims[size] = c.lastClaim
	return current.Data, c.lastClaim, true
}

// UploadingDone records the asset id returned for the upload made under claim.
func (c *Coordinator) UploadingDone(ctx context.Context, size domain.ImageSize, claim Claim, assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isUploading(ctx, size, claim) {
		return
	}
	c.setImageState(ctx, size, domain.UploadedImage(assetID))
}

// UploadingFailed fails the upload made under claim and with it the whole update.
func (c *Coordinator) UploadingFailed(ctx context.Context, size domain.ImageSize, claim Claim, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isUploading(ctx, size, claim) {
		return
	}
	c.setImageState(ctx, size, domain.FailedImage(domain.NewUploadFailedError(cause)))
}

func (c *Coordinator) preprocessingCompleted(ctx context.Context, cycle uint64, images map[domain.ImageSize][]byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := log.Ctx(ctx)
	if cycle != c.cycle || c.profile.Phase != domain.ProfilePreprocess {
		l.Debug().Uint64(log.FieldCycle, cycle).Msg("dropped stale preprocessing result")
		return
	}

	if err == nil {
		err = checkImages(images)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrPreprocessingFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrPreprocessingFailed, err)
		}
		l.Warn().Err(err).Uint64(log.FieldCycle, cycle).Msg("profile image preprocessing failed")
		c.setProfileState(ctx, domain.FailedProfile(err))
		return
	}

	c.stageResizedImages(ctx, images)
	for _, size := range domain.ImageSizes() {
		if c.images[size].Phase != domain.ImagePreprocessing {
			continue
		}
		c.setImageState(ctx, size, domain.PendingUploadImage(images[size]))
	}
}

// setImageState applies one per-size transition and its cascade. Caller holds mu.
func (c *Coordinator) setImageState(ctx context.Context, size domain.ImageSize, next domain.ImageState) bool {
	current := c.images[size]
	if !current.CanTransition(next) {
		c.logIgnored(ctx, size, current, next)
		return false
	}

	c.images[size] = next
	c.delegate.ImageStateChanged(ctx, size, current, next)

	switch next.Phase {
	case domain.ImagePendingUpload:
		c.signalRequestAvailable()
	case domain.ImageFailed:
		c.images[size] = domain.ReadyImage()
		c.delegate.ImageStateChanged(ctx, size, next, domain.ReadyImage())
		c.setProfileState(ctx, domain.FailedProfile(next.Err))
		return true
	}

	if previewID, completeID, ok := c.uploadedAssetIDs(); ok {
		c.setProfileState(ctx, domain.UpdateProfile(previewID, completeID))
	}
	return true
}

// setProfileState applies one aggregate transition and its cascade. Caller holds mu.
func (c *Coordinator) setProfileState(ctx context.Context, next domain.ProfileUpdateState) bool {
	current := c.profile
	if !current.CanTransition(next) {
		l := log.Ctx(ctx)
		l.Debug().
			Stringer(log.FieldFrom, current.Phase).
			Stringer(log.FieldTo, next.Phase).
			Msg("ignored invalid profile state transition")
		return false
	}

	c.profile = next
	c.delegate.ProfileStateChanged(ctx, current, next)

	switch next.Phase {
	case domain.ProfileFailed:
		c.resized = nil
		c.resetImages(ctx)
		c.profile = domain.ReadyProfile()
		c.delegate.ProfileStateChanged(ctx, next, c.profile)
	case domain.ProfileUpdate:
		c.commit(ctx, next)
	}
	return true
}

func (c *Coordinator) commit(ctx context.Context, update domain.ProfileUpdateState) {
	l := log.Ctx(ctx)
	resized := c.resized
	c.resized = nil
	if err := c.store.CommitAssetIDs(ctx, c.userID, update.PreviewAssetID, update.CompleteAssetID, resized); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, c.userID).Msg("failed to commit profile image asset ids")
		c.setProfileState(ctx, domain.FailedProfile(fmt.Errorf("commit asset ids: %w", err)))
		return
	}

	l.Info().
		Str(log.FieldUserID, c.userID).
		Str("preview_asset_id", update.PreviewAssetID).
		Str("complete_asset_id", update.CompleteAssetID).
		Msg("profile image committed")

	c.resetImages(ctx)
	c.setProfileState(ctx, domain.ReadyProfile())
}

// resetImages forces every size back to Ready without consulting the
// transition table, notifying each size that was not already Ready.
func (c *Coordinator) resetImages(ctx context.Context) {
	for _, size := range domain.ImageSizes() {
		current := c.images[size]
		if current.Phase == domain.ImageReady {
			continue
		}
		c.images[size] = domain.ReadyImage()
		c.delegate.ImageStateChanged(ctx, size, current, c.images[size])
	}
}

// supersede clears a cycle in flight so a new one starts from Ready.
func (c *Coordinator) supersede(ctx context.Context) {
	if c.profile.Phase != domain.ProfileReady {
		c.setProfileState(ctx, domain.FailedProfile(domain.ErrSuperseded))
	}
	c.resetImages(ctx)
}

// stageResizedImages keeps the payloads for commit. They are written to the
// store right away only while no asset ids are committed, so an interrupted
// first upload can be retried by ReuploadExistingImageIfNeeded without
// replacing the bytes of a committed image.
func (c *Coordinator) stageResizedImages(ctx context.Context, images map[domain.ImageSize][]byte) {
	c.resized = images

	l := log.Ctx(ctx)
	profile, err := c.store.GetProfile(ctx, c.userID)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
	case err != nil:
		l.Warn().Err(err).Str(log.FieldUserID, c.userID).Msg("failed to load profile before caching resized images")
		return
	case profile.HasAssetIDs():
		return
	}

	if err := c.store.SaveResizedImages(ctx, c.userID, images); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, c.userID).Msg("failed to cache resized profile images")
	}
}

func (c *Coordinator) uploadedAssetIDs() (previewID, completeID string, ok bool) {
	for _, size := range domain.ImageSizes() {
		if c.images[size].Phase != domain.ImageUploaded {
			return "", "", false
		}
	}
	return c.images[domain.ImageSizePreview].AssetID, c.images[domain.ImageSizeComplete].AssetID, true
}

func (c *Coordinator) idle() bool {
	if c.profile.Phase != domain.ProfileReady {
		return false
	}
	for _, state := range c.images {
		if state.Phase != domain.ImageReady {
			return false
		}
	}
	return true
}

func (c *Coordinator) isUploading(ctx context.Context, size domain.ImageSize, claim Claim) bool {
	current, ok := c.images[size]
	if ok && current.Phase == domain.ImageUploading && c.claims[size] == claim {
		return true
	}
	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldImageSize, string(size)).
		Stringer(log.FieldFrom, current.Phase).
		Uint64("claim", uint64(claim)).
		Msg("dropped stale upload result")
	return false
}

func (c *Coordinator) signalRequestAvailable() {
	select {
	case c.requestAvailable <- struct{}{}:
	default:
	}
}

func (c *Coordinator) logIgnored(ctx context.Context, size domain.ImageSize, from, to domain.ImageState) {
	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldImageSize, string(size)).
		Stringer(log.FieldFrom, from.Phase).
		Stringer(log.FieldTo, to.Phase).
		Msg("ignored invalid image state transition")
}

func checkImages(images map[domain.ImageSize][]byte) error {
	for _, size := range domain.ImageSizes() {
		if len(images[size]) == 0 {
			return fmt.Errorf("%w: no %s image produced", domain.ErrPreprocessingFailed, size)
		}
	}
	return nil
}
