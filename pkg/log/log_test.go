package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", ServiceName: "profile-image-service", Output: &buf})

	logger.Debug().Str(FieldImageSize, "preview").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "profile-image-service", entry[FieldService])
	assert.Equal(t, "preview", entry[FieldImageSize])
	assert.Equal(t, "hello", entry["message"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"whatever": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	ctx := WithLogger(context.Background(), logger)
	l := Ctx(ctx)
	l.Info().Msg("from context")

	assert.Contains(t, buf.String(), "from context")
	assert.NotPanics(t, func() {
		l := Ctx(context.Background())
		l.Debug().Msg("global")
	})
}

func TestWithUserID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithUserID(WithLogger(context.Background(), New(Config{Output: &buf})), "user-1")

	l := Ctx(ctx)
	l.Info().Msg("tagged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user-1", entry[FieldUserID])
}

func TestGinMiddleware_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinMiddleware(New(Config{Output: &buf})))
	r.GET("/ping", func(c *gin.Context) {
		l := Ctx(c.Request.Context())
		l.Info().Msg("handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(headerRequestID))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), "request completed")
}
