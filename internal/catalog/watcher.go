package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rovshanmuradov/datatrade/internal/events"
	"go.uber.org/zap"
)

// Watcher reloads a file-backed catalog when the file changes.
// The parent directory is watched so editors that replace the file are seen too.
type Watcher struct {
	mu       sync.Mutex
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	bus      events.Publisher
	logger   *zap.Logger
	debounce time.Duration
	running  bool
	doneCh   chan struct{}
	reloads  int
}

// NewWatcher prepares a watcher for a catalog loaded with LoadFile.
func NewWatcher(c *Catalog, bus events.Publisher, logger *zap.Logger) (*Watcher, error) {
	if c.Path() == "" {
		return nil, fmt.Errorf("catalog has no backing file to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		catalog:  c,
		watcher:  fw,
		bus:      bus,
		logger:   logger.Named("catalog_watcher"),
		debounce: 100 * time.Millisecond,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching; it returns immediately. The loop ends when ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	dir := filepath.Dir(w.catalog.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.running = true
	go w.run(ctx)
	w.logger.Debug("Watching catalog", zap.String("path", w.catalog.Path()))
	return nil
}

// Wait blocks until the watch loop has exited.
func (w *Watcher) Wait() {
	<-w.doneCh
}

// Reloads returns how many successful reloads happened.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	target := filepath.Clean(w.catalog.Path())
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Catalog watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	snapshot, err := w.catalog.Reload()
	if err != nil {
		w.logger.Warn("Catalog reload failed, keeping previous prices", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	w.logger.Info("Catalog reloaded", zap.Int("tokens", snapshot.Len()))
	if w.bus != nil {
		_ = w.bus.PublishSync(ctx, events.CatalogReloadedEvent{
			BaseEvent: events.NewBase(events.CatalogReloaded),
			Tokens:    snapshot.Len(),
			Path:      w.catalog.Path(),
		})
	}
}

// Watch starts a Watcher for c and returns it once the watch is established.
func (c *Catalog) Watch(ctx context.Context, bus events.Publisher, logger *zap.Logger) (*Watcher, error) {
	w, err := NewWatcher(c, bus, logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.watcher.Close()
		return nil, err
	}
	return w, nil
}
