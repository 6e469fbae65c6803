package integrity

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/store"
)

// TamperWatcher watches the installed artifact directory and schedules an
// enforcement pass when an artifact changes outside the update pipeline.
// Debounced so a burst of writes triggers one pass per identity.
type TamperWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	verifier *Verifier
	store    *store.Store
	log      *zap.Logger

	pending     map[models.Identity]time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewTamperWatcher creates a watcher over the store's installed directory.
func NewTamperWatcher(v *Verifier, st *store.Store, log *zap.Logger) (*TamperWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &TamperWatcher{
		watcher:     watcher,
		verifier:    v,
		store:       st,
		log:         log,
		pending:     make(map[models.Identity]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (tw *TamperWatcher) Start(ctx context.Context) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return nil
	}
	tw.running = true
	tw.mu.Unlock()

	if err := tw.watcher.Add(tw.store.InstalledDir()); err != nil {
		tw.mu.Lock()
		tw.running = false
		tw.mu.Unlock()
		return err
	}

	tw.log.Info("watching installed artifacts", zap.String("dir", tw.store.InstalledDir()))

	go tw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (tw *TamperWatcher) Stop() {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return
	}
	tw.running = false
	tw.mu.Unlock()

	close(tw.stopCh)
	<-tw.doneCh

	if err := tw.watcher.Close(); err != nil {
		tw.log.Warn("error closing artifact watcher", zap.Error(err))
	}
}

func (tw *TamperWatcher) run(ctx context.Context) {
	defer close(tw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-tw.stopCh:
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handleEvent(event)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.log.Warn("artifact watcher error", zap.Error(err))

		case <-ticker.C:
			tw.processPending(ctx)
		}
	}
}

func (tw *TamperWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".model") {
		return
	}

	id, err := models.ParseIdentity(strings.TrimSuffix(base, ".model"))
	if err != nil {
		return
	}

	tw.mu.Lock()
	tw.pending[id] = time.Now()
	tw.mu.Unlock()
}

func (tw *TamperWatcher) processPending(ctx context.Context) {
	now := time.Now()

	tw.mu.Lock()
	var due []models.Identity
	for id, last := range tw.pending {
		if now.Sub(last) >= tw.debounceDur {
			due = append(due, id)
			delete(tw.pending, id)
		}
	}
	tw.mu.Unlock()

	for _, id := range due {
		if ok, err := tw.verifier.Enforce(ctx, id); err != nil {
			tw.log.Warn("enforcement after artifact change failed",
				zap.String("identity", id.String()), zap.Error(err))
		} else if !ok {
			tw.log.Warn("artifact remains untrusted after enforcement",
				zap.String("identity", id.String()))
		}
	}
}
