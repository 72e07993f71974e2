package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func decodeBounds(t *testing.T, data []byte) image.Rectangle {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds()
}

func TestProfileImageProcessor_Preprocess(t *testing.T) {
	p, err := NewProfileImageProcessor(config.ProcessorConfig{
		Sizes: []config.SizeConfig{
			{Name: "preview", Width: 64, Height: 64, Mode: ModeFill},
			{Name: "complete", Width: 200, Height: 200, Mode: ModeFit},
		},
		JpegQuality: 80,
	})
	require.NoError(t, err)

	out, err := p.Preprocess(context.Background(), "user-1", encodePNG(t, 400, 100))
	require.NoError(t, err)

	require.Len(t, out, 2)
	preview := decodeBounds(t, out[domain.ImageSizePreview])
	assert.Equal(t, 64, preview.Dx())
	assert.Equal(t, 64, preview.Dy())

	complete := decodeBounds(t, out[domain.ImageSizeComplete])
	assert.Equal(t, 200, complete.Dx())
	assert.Equal(t, 50, complete.Dy())
}

func TestProfileImageProcessor_FitDoesNotUpscale(t *testing.T) {
	p, err := NewProfileImageProcessor(config.ProcessorConfig{
		Sizes: []config.SizeConfig{{Name: "complete", Width: 1024, Height: 1024, Mode: ModeFit}},
	})
	require.NoError(t, err)

	out, err := p.Preprocess(context.Background(), "user-1", encodePNG(t, 30, 20))
	require.NoError(t, err)

	b := decodeBounds(t, out[domain.ImageSizeComplete])
	assert.Equal(t, 30, b.Dx())
	assert.Equal(t, 20, b.Dy())
}

func TestProfileImageProcessor_Errors(t *testing.T) {
	p, err := NewProfileImageProcessor(config.ProcessorConfig{})
	require.NoError(t, err)

	_, err = p.Preprocess(context.Background(), "user-1", nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = p.Preprocess(context.Background(), "user-1", []byte("not an image"))
	assert.ErrorContains(t, err, "decode image")
}

func TestNewProfileImageProcessor_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		size config.SizeConfig
	}{
		{"unknown size", config.SizeConfig{Name: "huge", Width: 10, Height: 10}},
		{"zero width", config.SizeConfig{Name: "preview", Width: 0, Height: 10}},
		{"bad mode", config.SizeConfig{Name: "preview", Width: 10, Height: 10, Mode: "stretch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProfileImageProcessor(config.ProcessorConfig{Sizes: []config.SizeConfig{tt.size}})
			assert.Error(t, err)
		})
	}
}

func TestTaskQueue_RunsTasks(t *testing.T) {
	tq := NewTaskQueue(context.Background(), 4, 2)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		tq.Add("count", func(ctx context.Context) {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	tq.Close()

	assert.Equal(t, int32(10), count.Load())
}

func TestTaskQueue_RecoversPanic(t *testing.T) {
	tq := NewTaskQueue(context.Background(), 1, 1)

	done := make(chan struct{})
	tq.Add("boom", func(ctx context.Context) { panic("boom") })
	tq.Add("after", func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task after panic did not run")
	}
	tq.Close()
}

func TestTaskQueue_AddAfterClose(t *testing.T) {
	tq := NewTaskQueue(context.Background(), 1, 1)
	tq.Close()

	assert.NotPanics(t, func() {
		tq.Add("late", func(ctx context.Context) {})
	})
	tq.Close()
}
