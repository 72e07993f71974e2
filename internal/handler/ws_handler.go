package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingInterval   = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
)

// wsMessage has the shape of pubsub.Event so clients decode both alike.
type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// StreamEventsWS streams the state events of StreamEvents over a websocket.
// The first message is the current status. Client messages are discarded.
func (h *Handler) StreamEventsWS(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx, pubsub.ProfileImageStateChannel(h.coord.UserID()))
	if err != nil {
		l.Error().Err(err).Msg("failed to subscribe to profile image events")
		closeWS(conn, websocket.CloseInternalServerErr, "failed to subscribe")
		return
	}

	go readPump(ctx, conn, cancel)

	if err := writeWS(conn, wsMessage{Type: "status", Payload: h.status(ctx)}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeWS(conn, websocket.CloseNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				closeWS(conn, websocket.CloseGoingAway, "")
				return
			}
			if err := writeWS(conn, event); err != nil {
				l.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps pong deadlines and cancels the stream once the client goes away.
func readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l := log.Ctx(ctx)
				l.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
	}
}

func writeWS(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func closeWS(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}
