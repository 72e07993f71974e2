package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/dispatcher"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/handler"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/ingest"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/mq"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/notifier"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/participant"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/processor"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/repository"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/transport"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/upload"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/database"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
	pkgstorage "github.com/weiawesome/wes-io-live/profile-image-service/pkg/storage"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "profile-image-service",
	})
	l := pkglog.L()

	userID := cfg.Profile.UserID
	if userID == "" {
		l.Fatal().Msg("profile.user_id is required")
	}
	l.Info().Str(pkglog.FieldUserID, userID).Msg("profile-image-service starting")

	ctx, cancel := context.WithCancel(pkglog.WithUserID(pkglog.WithLogger(context.Background(), l), userID))
	defer cancel()

	repo := newRepository(cfg)

	st, err := pkgstorage.New(ctx, cfg.Storage)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init storage")
	}

	tr, err := transport.New(cfg.Transport, userID, st)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init asset transport")
	}

	proc, err := processor.NewProfileImageProcessor(cfg.Processor)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init image processor")
	}
	queue := processor.NewTaskQueue(ctx, cfg.Processor.QueueSize, cfg.Processor.Workers)

	events := newPubSub(cfg)
	stateEvents := notifier.NewPubSubDelegate(events, userID, 64)

	var publisher mq.ProfileEventPublisher = mq.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher, err = mq.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init kafka publisher")
		}
	}

	coord := upload.NewCoordinator(userID, proc, queue, repo, notifier.Multi{
		notifier.NewLogDelegate(userID),
		stateEvents,
		notifier.NewCommitDelegate(publisher, userID),
	})

	disp := dispatcher.New(coord, tr,
		dispatcher.WithPollInterval(cfg.Dispatcher.PollInterval),
		dispatcher.WithImageCache(repo),
	)
	// Background work reports transitions, so it must stop before the delegates close.
	background, bgCtx := errgroup.WithContext(ctx)
	background.Go(func() error {
		return disp.Run(bgCtx)
	})

	if cfg.Profile.ReuploadOnStart {
		if err := coord.ReuploadExistingImageIfNeeded(ctx); err != nil {
			l.Warn().Err(err).Msg("reupload on start failed")
		}
	}

	if cfg.Ingest.Enabled {
		watcher := ingest.NewWatcher(cfg.Ingest.Dir, userID, coord, ingest.WithMaxSize(cfg.Transport.MaxAssetSize))
		background.Go(func() error {
			// The service keeps serving uploads without the watcher.
			if err := watcher.Run(bgCtx); err != nil {
				l.Error().Err(err).Str("dir", cfg.Ingest.Dir).Msg("ingest watcher stopped")
			}
			return nil
		})
		l.Info().Str("dir", cfg.Ingest.Dir).Msg("ingest watcher started")
	}

	registry := participant.NewRegistry(participant.NewPubSubObserver(events))

	opts := []handler.Option{handler.WithMaxImageSize(cfg.Transport.MaxAssetSize)}
	if cfg.Auth.Enabled {
		validator := jwt.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		opts = append(opts, handler.WithAuth(middleware.NewAuthMiddleware(validator, userID).RequireAuth()))
	}
	httpHandler := handler.NewHandler(coord, repo, tr, events, registry, opts...)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), pkglog.GinMiddleware(l))
	httpHandler.RegisterRoutes(r)

	// No write timeout: the event stream is long lived.
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Block until SIGINT / SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	l.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("server forced to shutdown")
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if err := background.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			l.Error().Err(err).Msg("dispatcher stopped")
		}
		queue.Close()
		stateEvents.Close()
		if n := stateEvents.Dropped(); n > 0 {
			l.Warn().Uint64("dropped_total", n).Msg("state events dropped")
		}
		if err := publisher.Close(); err != nil {
			l.Warn().Err(err).Msg("failed to close kafka publisher")
		}
		if err := events.Close(); err != nil {
			l.Warn().Err(err).Msg("failed to close pubsub")
		}
	}()

	select {
	case <-shutdownDone:
		l.Info().Msg("shutdown complete")
	case <-shutdownCtx.Done():
		l.Warn().Msg("shutdown timed out")
	}
}

func newRepository(cfg *config.Config) repository.ProfileRepository {
	l := pkglog.L()

	if cfg.Database.Driver == "memory" {
		l.Info().Msg("using in-memory profile repository")
		return repository.NewMemoryProfileRepository()
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.ProfileImageModel{}); err != nil {
		l.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	return repository.NewGormProfileRepository(db)
}

// newPubSub returns the state event bus. The "none" driver keeps events in process.
func newPubSub(cfg *config.Config) pubsub.PubSub {
	l := pkglog.L()

	switch cfg.Notifier.Driver {
	case "", "none", "memory":
		return pubsub.NewMemoryPubSub()
	}

	ps, err := pubsub.NewPubSub(cfg.Notifier.PubSub)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init pubsub")
	}
	l.Info().Str("driver", cfg.Notifier.Driver).Msg("pubsub initialised")
	return ps
}
