package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/audit"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// ImageSink receives the original bytes of every ingested image.
type ImageSink interface {
	UpdateImage(ctx context.Context, data []byte)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DefaultMaxSize is the largest file the watcher reads.
const DefaultMaxSize = 15 << 20

// Watcher feeds image files dropped into a directory to an ImageSink.
// A file is read once it has been quiet for the settle delay, then removed.
type Watcher struct {
	dir     string
	userID  string
	sink    ImageSink
	settle  time.Duration
	maxSize int64

	mu      sync.Mutex
	stopped bool
	pending map[string]*time.Timer
	running sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithMaxSize rejects files larger than n bytes.
func WithMaxSize(n int64) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxSize = n
		}
	}
}

func NewWatcher(dir, userID string, sink ImageSink, opts ...Option) *Watcher {
	w := &Watcher{
		dir:     dir,
		userID:  userID,
		sink:    sink,
		settle:  300 * time.Millisecond,
		maxSize: DefaultMaxSize,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the directory until ctx is done. Images already present are
// ingested first. Run returns after every ingest it started has finished.
func (w *Watcher) Run(ctx context.Context) error {
	l := pkglog.Ctx(ctx)

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create ingest directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	defer w.stop()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}
	l.Info().Str("dir", w.dir).Msg("watching for profile images")

	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && isImage(event.Name) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.Warn().Err(err).Str("dir", w.dir).Msg("ingest watcher error")
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("dir", w.dir).Msg("failed to scan ingest directory")
		return
	}
	for _, e := range entries {
		if !e.IsDir() && isImage(e.Name()) {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// schedule (re)arms the settle timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.running.Add(1)
		w.mu.Unlock()
		defer w.running.Done()

		if ctx.Err() == nil {
			w.ingest(ctx, path)
		}
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	l := pkglog.Ctx(ctx).With().Str("file", filepath.Base(path)).Logger()

	data, err := w.read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.Warn().Err(err).Msg("failed to read ingested image")
		}
		return
	}
	if len(data) == 0 {
		return
	}

	if err := os.Remove(path); err != nil {
		l.Warn().Err(err).Msg("failed to remove ingested image")
	}
	if int64(len(data)) > w.maxSize {
		l.Warn().Int64("max_size", w.maxSize).Msg("ingested image too large, discarded")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionIngested, w.userID, filepath.Base(path), "profile image ingested from directory")
	w.sink.UpdateImage(ctx, data)
}

// read returns at most maxSize+1 bytes of path.
func (w *Watcher) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, w.maxSize+1))
}

// stop cancels pending timers and waits for running ingests.
func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.running.Wait()
}

func isImage(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
