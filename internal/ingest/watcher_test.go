package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink chan []byte

func (s chanSink) UpdateImage(_ context.Context, data []byte) {
	s <- data
}

func startWatcher(t *testing.T, dir string, opts ...Option) chanSink {
	t.Helper()
	sink := make(chanSink, 4)
	w := NewWatcher(dir, "user-1", sink, opts...)
	w.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return sink
}

func receive(t *testing.T, sink chanSink) []byte {
	t.Helper()
	select {
	case data := <-sink:
		return data
	case <-time.After(3 * time.Second):
		t.Fatal("image not ingested")
		return nil
	}
}

func TestWatcher_IngestsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.jpg")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

	sink := startWatcher(t, dir)

	assert.Equal(t, []byte("existing"), receive(t, sink))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_IngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	sink := startWatcher(t, dir)

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.PNG"), []byte("new"), 0644))

	assert.Equal(t, []byte("new"), receive(t, sink))
}

func TestWatcher_DiscardsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.jpg")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.jpg"), []byte("small"), 0644))

	sink := startWatcher(t, dir, WithMaxSize(16))

	assert.Equal(t, []byte("small"), receive(t, sink))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(big)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
	select {
	case data := <-sink:
		t.Fatalf("oversized file ingested: %d bytes", len(data))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcher_RunWaitsForIngest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatar.jpg"), []byte("img"), 0644))

	entered := make(chan struct{})
	release := make(chan struct{})
	sink := blockingSink{entered: entered, release: release}
	w := NewWatcher(dir, "user-1", sink)
	w.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("image not ingested")
	}
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while an ingest was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.NoError(t, <-done)
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s blockingSink) UpdateImage(_ context.Context, _ []byte) {
	close(s.entered)
	<-s.release
}

func TestIsImage(t *testing.T) {
	assert.True(t, isImage("/x/photo.JPEG"))
	assert.False(t, isImage("/x/notes.txt"))
	assert.False(t, isImage("/x/.tmp-123.jpg"))
}
