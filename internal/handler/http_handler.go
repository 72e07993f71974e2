package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/audit"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/participant"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/transport"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/response"
)

// DefaultMaxImageSize bounds an uploaded original image.
const DefaultMaxImageSize = 15 * 1024 * 1024

// Coordinator is the part of upload.Coordinator exposed over HTTP.
type Coordinator interface {
	UserID() string
	UpdateImage(ctx context.Context, data []byte)
	UpdatePreprocessedImages(ctx context.Context, preview, complete []byte)
	ReuploadExistingImageIfNeeded(ctx context.Context) error
	States() (domain.ProfileUpdateState, map[domain.ImageSize]domain.ImageState)
}

// ProfileReader loads the stored profile image record.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// Handler handles HTTP requests for profile-image-service.
type Handler struct {
	coord        Coordinator
	profiles     ProfileReader
	assets       transport.Downloader
	events       pubsub.Subscriber
	participants *participant.Registry
	auth         gin.HandlerFunc
	maxImageSize int64
	upgrader     websocket.Upgrader
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuth guards every route with the given middleware.
func WithAuth(auth gin.HandlerFunc) Option {
	return func(h *Handler) { h.auth = auth }
}

// WithMaxImageSize bounds the body of an image update.
func WithMaxImageSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxImageSize = n
		}
	}
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	coord Coordinator,
	profiles ProfileReader,
	assets transport.Downloader,
	events pubsub.Subscriber,
	participants *participant.Registry,
	opts ...Option,
) *Handler {
	h := &Handler{
		coord:        coord,
		profiles:     profiles,
		assets:       assets,
		events:       events,
		participants: participants,
		maxImageSize: DefaultMaxImageSize,
		upgrader:     newUpgrader(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if h.auth != nil {
		api.Use(h.auth)
	}
	{
		image := api.Group("/profile/image")
		{
			image.PUT("", h.UpdateImage)
			image.POST("/preprocessed", h.UpdatePreprocessedImages)
			image.POST("/reupload", h.Reupload)
			image.GET("/status", h.GetStatus)
			image.GET("/events", h.StreamEvents)
			image.GET("/ws", h.StreamEventsWS)
			image.GET("/:size", h.GetImage)
		}

		api.PUT("/calls/:conversation_id/participants", h.ReplaceParticipants)
		api.DELETE("/calls/:conversation_id/participants", h.RemoveParticipants)
	}
}

// UpdateImage accepts a raw original image and starts a new update cycle.
func (h *Handler) UpdateImage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(c, "image too large")
			return
		}
		l.Warn().Err(err).Msg("failed to read image body")
		response.BadRequest(c, "failed to read image")
		return
	}
	if len(data) == 0 {
		response.BadRequest(c, "empty image")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		response.BadRequest(c, "body is not an image")
		return
	}

	h.coord.UpdateImage(ctx, data)
	audit.LogWithDetail(ctx, audit.ActionUpdateRequested, h.actor(c), http.DetectContentType(data), "profile image update requested")

	response.Accepted(c, h.status(ctx))
}

// UpdatePreprocessedImages accepts already resized images and queues them for upload.
func (h *Handler) UpdatePreprocessedImages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.PreprocessedImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid preprocessed images request")
		response.BadRequest(c, err.Error())
		return
	}

	h.coord.UpdatePreprocessedImages(ctx, req.Preview, req.Complete)
	audit.Log(ctx, audit.ActionPreprocessedSubmitted, h.actor(c), "preprocessed profile images submitted")

	response.Accepted(c, h.status(ctx))
}

// Reupload re-queues cached images that never got asset ids.
func (h *Handler) Reupload(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	if err := h.coord.ReuploadExistingImageIfNeeded(ctx); err != nil {
		l.Error().Err(err).Msg("reupload failed")
		response.InternalError(c, "failed to reupload profile image")
		return
	}
	audit.Log(ctx, audit.ActionReuploadRequested, h.actor(c), "profile image reupload requested")

	response.Success(c, h.status(ctx))
}

// GetStatus returns the current state machines and committed asset ids.
func (h *Handler) GetStatus(c *gin.Context) {
	response.Success(c, h.status(c.Request.Context()))
}

// StreamEvents streams state transitions as server-sent events. The first
// event is the current status.
func (h *Handler) StreamEvents(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	events, err := h.events.Subscribe(ctx, pubsub.ProfileImageStateChannel(h.coord.UserID()))
	if err != nil {
		l.Error().Err(err).Msg("failed to subscribe to profile image events")
		response.InternalError(c, "failed to subscribe")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("status", h.status(ctx))
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(event.Type, event)
			c.Writer.Flush()
		}
	}
}

// GetImage serves the cached bytes of a size, or redirects to the committed asset.
func (h *Handler) GetImage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	size, err := domain.ParseImageSize(c.Param("size"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	profile, err := h.profiles.GetProfile(ctx, h.coord.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			response.NotFound(c, "no profile image")
			return
		}
		l.Error().Err(err).Msg("failed to load profile")
		response.InternalError(c, "failed to load profile")
		return
	}

	if data := profile.ImageData(size); len(data) > 0 {
		c.Data(http.StatusOK, http.DetectContentType(data), data)
		return
	}

	assetID := profile.AssetID(size)
	if assetID == "" {
		response.NotFound(c, "no profile image")
		return
	}
	url, err := h.assets.URL(ctx, assetID)
	if errors.Is(err, transport.ErrAssetNotFound) {
		response.NotFound(c, "no profile image")
		return
	}
	if err != nil {
		l.Warn().Err(err).Str(log.FieldAssetID, assetID).Msg("failed to resolve asset url")
		response.BadGateway(c, "failed to resolve asset")
		return
	}
	c.Redirect(http.StatusFound, url)
}

type replaceParticipantsRequest struct {
	Members []participant.Member `json:"members"`
}

type replaceParticipantsResponse struct {
	Members []participant.Member  `json:"members"`
	Change  participant.ChangeSet `json:"change"`
	Self    string                `json:"self_connection_state"`
}

// ReplaceParticipants sets the participant list of a call and returns the change set.
func (h *Handler) ReplaceParticipants(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}

	var req replaceParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid participants request")
		response.BadRequest(c, err.Error())
		return
	}

	change := h.participants.Replace(ctx, conversationID, req.Members)
	audit.LogTarget(ctx, audit.ActionParticipantsReplaced, h.actor(c), conversationID.String(), "call participants replaced")

	resp := replaceParticipantsResponse{Change: change, Self: participant.NotConnected.String()}
	if s, ok := h.participants.Snapshot(conversationID); ok {
		resp.Members = s.Members()
		if self, err := uuid.Parse(h.coord.UserID()); err == nil {
			resp.Self = s.ConnectionState(self).String()
		}
	}
	response.Success(c, resp)
}

// RemoveParticipants forgets the participant list of a call.
func (h *Handler) RemoveParticipants(c *gin.Context) {
	ctx := c.Request.Context()

	conversationID, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}
	if _, ok := h.participants.Snapshot(conversationID); !ok {
		response.NotFound(c, "unknown call")
		return
	}

	h.participants.Remove(conversationID)
	audit.LogTarget(ctx, audit.ActionParticipantsRemoved, h.actor(c), conversationID.String(), "call participants removed")
	c.Status(http.StatusNoContent)
}

func (h *Handler) status(ctx context.Context) domain.ImageStatusResponse {
	profile, images := h.coord.States()

	resp := domain.ImageStatusResponse{
		Profile: profile.Phase.String(),
		Images:  make(map[string]string, len(images)),
	}
	for size, state := range images {
		resp.Images[size.String()] = state.Phase.String()
	}

	if p, err := h.profiles.GetProfile(ctx, h.coord.UserID()); err == nil {
		resp.PreviewAssetID = p.PreviewAssetID
		resp.CompleteAssetID = p.CompleteAssetID
	}
	return resp
}

// actor is the authenticated user, or the session's self user when auth is off.
func (h *Handler) actor(c *gin.Context) string {
	if id := middleware.GetUserID(c); id != "" {
		return id
	}
	return h.coord.UserID()
}
