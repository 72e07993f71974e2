package dispatcher

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/transport"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/upload"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// Coordinator is the part of upload.Coordinator the dispatch loop drives.
type Coordinator interface {
	UserID() string
	RequestAvailable() <-chan struct{}
	HasImageToUpload(size domain.ImageSize) bool
	ConsumeImage(ctx context.Context, size domain.ImageSize) ([]byte, upload.Claim, bool)
	UploadingDone(ctx context.Context, size domain.ImageSize, claim upload.Claim, assetID string)
	UploadingFailed(ctx context.Context, size domain.ImageSize, claim upload.Claim, cause error)
}

// ImageCache loads committed asset ids and stores downloaded bytes.
type ImageCache interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	CacheImage(ctx context.Context, userID string, size domain.ImageSize, data []byte) error
}

// AuthenticationStatus reports whether requests may be sent.
type AuthenticationStatus interface {
	Authenticated() bool
}

// AlwaysAuthenticated is the AuthenticationStatus of a service holding its own credentials.
type AlwaysAuthenticated struct{}

func (AlwaysAuthenticated) Authenticated() bool { return true }

// Dispatcher claims pending payloads from the coordinator and uploads them.
type Dispatcher struct {
	coord        Coordinator
	transport    transport.Transport
	cache        ImageCache
	auth         AuthenticationStatus
	pollInterval time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAuthenticationStatus gates every dispatch on auth.
func WithAuthenticationStatus(auth AuthenticationStatus) Option {
	return func(d *Dispatcher) { d.auth = auth }
}

// WithPollInterval sets how often the loop checks for work without a signal.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) { d.pollInterval = interval }
}

// WithImageCache enables downloading committed assets that have no local bytes.
func WithImageCache(cache ImageCache) Option {
	return func(d *Dispatcher) { d.cache = cache }
}

func New(coord Coordinator, tr transport.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		coord:        coord,
		transport:    tr,
		auth:         AlwaysAuthenticated{},
		pollInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run dispatches on every request-available signal and poll tick until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	l := pkglog.Ctx(ctx)
	l.Info().Dur("poll_interval", d.pollInterval).Msg("upload dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.FetchMissingImages(ctx)
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("upload dispatcher stopped")
			return nil
		case <-d.coord.RequestAvailable():
			d.DispatchOnce(ctx)
		case <-ticker.C:
			d.DispatchOnce(ctx)
			d.FetchMissingImages(ctx)
		}
	}
}

// DispatchOnce uploads every size that holds a pending payload, in parallel,
// and reports each outcome to the coordinator. A failed upload cancels the
// uploads still running beside it. It returns the number of uploads started.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	if !d.auth.Authenticated() {
		return 0
	}

	g, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, size := range domain.ImageSizes() {
		if !d.coord.HasImageToUpload(size) {
			continue
		}
		data, claim, ok := d.coord.ConsumeImage(ctx, size)
		if !ok {
			continue
		}

		started++
		size := size
		g.Go(func() error {
			return d.upload(ctx, gctx, size, claim, data)
		})
	}

	if err := g.Wait(); err != nil {
		l := pkglog.Ctx(ctx)
		l.Debug().Err(err).Msg("upload batch aborted")
	}
	return started
}

// upload sends data over uploadCtx and reports the result under ctx.
func (d *Dispatcher) upload(ctx, uploadCtx context.Context, size domain.ImageSize, claim upload.Claim, data []byte) error {
	l := pkglog.Ctx(ctx).With().Str(pkglog.FieldImageSize, size.String()).Logger()

	assetID, err := d.transport.Upload(uploadCtx, size, data)
	if err != nil {
		l.Error().Err(err).
			Bool("too_large", errors.Is(err, transport.ErrAssetTooLarge)).
			Bool("invalid_length", errors.Is(err, transport.ErrInvalidLength)).
			Msg("profile image upload failed")
		d.coord.UploadingFailed(ctx, size, claim, err)
		return err
	}

	l.Info().Str(pkglog.FieldAssetID, assetID).Msg("profile image uploaded")
	d.coord.UploadingDone(ctx, size, claim, assetID)
	return nil
}

// FetchMissingImages downloads committed assets whose bytes are not cached locally.
func (d *Dispatcher) FetchMissingImages(ctx context.Context) {
	if d.cache == nil || !d.auth.Authenticated() {
		return
	}

	l := pkglog.Ctx(ctx)
	profile, err := d.cache.GetProfile(ctx, d.coord.UserID())
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			l.Warn().Err(err).Msg("failed to load profile for image fetch")
		}
		return
	}

	for _, size := range domain.ImageSizes() {
		assetID := profile.AssetID(size)
		if assetID == "" || len(profile.ImageData(size)) > 0 {
			continue
		}

		data, err := d.transport.Download(ctx, assetID)
		if err != nil {
			l.Warn().Err(err).Str(pkglog.FieldAssetID, assetID).Msg("failed to download profile image")
			continue
		}
		if err := d.cache.CacheImage(ctx, d.coord.UserID(), size, data); err != nil {
			l.Warn().Err(err).Str(pkglog.FieldAssetID, assetID).Msg("failed to cache profile image")
			continue
		}
		l.Info().Str(pkglog.FieldImageSize, size.String()).Str(pkglog.FieldAssetID, assetID).Msg("cached profile image")
	}
}
