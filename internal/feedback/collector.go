// Package feedback accumulates labeled interaction examples and drives the
// retrain-and-swap loop: once enough feedback is buffered (or a periodic
// timer fires) the buffer is drained into an update pass, and a successful
// pass atomically replaces the installed artifact and invalidates the
// model cache so the next load picks up the new artifact.
package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pders01/modelkeep/internal/events"
	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
	"github.com/pders01/modelkeep/internal/store"
)

// DefaultThreshold is the buffer size that triggers an update pass.
const DefaultThreshold = 20

// Collector buffers feedback for one target identity and schedules
// update passes. All buffer mutations are serialized under one mutex.
type Collector struct {
	target   models.Identity
	trainer  Trainer
	store    *store.Store
	verifier *integrity.Verifier
	loader   *registry.Loader
	bus      *events.Bus
	log      *zap.Logger

	threshold int

	mu       sync.Mutex
	buf      []models.FeedbackEntry
	inFlight bool

	wg sync.WaitGroup
}

// NewCollector wires a collector. threshold <= 0 selects DefaultThreshold;
// bus may be nil when nobody listens.
func NewCollector(target models.Identity, trainer Trainer, st *store.Store, v *integrity.Verifier, l *registry.Loader, bus *events.Bus, threshold int, log *zap.Logger) *Collector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Collector{
		target:    target,
		trainer:   trainer,
		store:     st,
		verifier:  v,
		loader:    l,
		bus:       bus,
		log:       log,
		threshold: threshold,
	}
}

// Record appends one feedback entry. Reaching the threshold triggers an
// update pass immediately unless one is already in flight; the buffered
// entries then wait for the next trigger.
func (c *Collector) Record(input, expected string) {
	entry := models.FeedbackEntry{
		Input:     input,
		Expected:  expected,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.buf = append(c.buf, entry)
	trigger := len(c.buf) >= c.threshold && !c.inFlight
	if trigger {
		c.inFlight = true
	}
	c.mu.Unlock()

	if trigger {
		c.startPass(context.Background())
	}
}

// Pending returns the current buffer length.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// TriggerNow starts an update pass if the buffer is non-empty and no pass
// is in flight. Returns true when a pass was started.
func (c *Collector) TriggerNow(ctx context.Context) bool {
	c.mu.Lock()
	trigger := len(c.buf) > 0 && !c.inFlight
	if trigger {
		c.inFlight = true
	}
	c.mu.Unlock()

	if trigger {
		c.startPass(ctx)
	}
	return trigger
}

// Run triggers timer-driven passes until the context is cancelled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.TriggerNow(ctx)
		}
	}
}

// Wait blocks until all in-flight update passes finish.
func (c *Collector) Wait() {
	c.wg.Wait()
}

// Flush persists the current buffer. Called on shutdown and background
// transitions so buffered feedback survives a restart.
func (c *Collector) Flush() error {
	c.mu.Lock()
	snapshot := make([]models.FeedbackEntry, len(c.buf))
	copy(snapshot, c.buf)
	c.mu.Unlock()

	return c.store.SaveFeedback(snapshot)
}

// LoadPersisted restores a previously flushed buffer. Called once at
// startup, before any Record.
func (c *Collector) LoadPersisted() error {
	entries, err := c.store.LoadFeedback()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.buf = append(entries, c.buf...)
	c.mu.Unlock()

	return nil
}

// startPass drains the buffer and runs the update asynchronously. The
// buffer is cleared before the pass completes, so feedback arriving
// mid-update starts a fresh buffer instead of being lost or duplicated.
// The caller must have set inFlight under the mutex.
func (c *Collector) startPass(ctx context.Context) {
	c.mu.Lock()
	drained := c.buf
	c.buf = nil
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		}()

		result := c.runPass(ctx, drained)
		if result.Succeeded() {
			c.log.Info("update pass succeeded",
				zap.String("pass_id", result.PassID),
				zap.String("identity", result.Identity.String()),
				zap.Int("entries", result.EntryCount),
				zap.Duration("duration", result.Duration))
		} else {
			// Drained entries are discarded on failure. Requeueing would
			// risk unbounded memory and poison-pill loops.
			c.log.Warn("update pass failed, discarding drained feedback",
				zap.String("pass_id", result.PassID),
				zap.String("identity", result.Identity.String()),
				zap.Int("entries", result.EntryCount),
				zap.String("error", result.Err))
		}
	}()
}

// runPass executes one update: train on the drained entries, commit the
// new artifact, approve its signature, and invalidate the cache entry.
func (c *Collector) runPass(ctx context.Context, entries []models.FeedbackEntry) models.UpdateResult {
	start := time.Now()
	result := models.UpdateResult{
		PassID:     uuid.NewString(),
		Identity:   c.target,
		EntryCount: len(entries),
	}

	ev := events.NewEvent(events.TypeUpdateStarted, c.target)
	ev.ID = result.PassID
	c.publish(ev)

	err := c.update(ctx, entries)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err.Error()
	}

	done := events.NewEvent(events.TypeUpdateFinished, c.target)
	done.ID = result.PassID
	done.Err = result.Err
	c.publish(done)

	return result
}

func (c *Collector) update(ctx context.Context, entries []models.FeedbackEntry) error {
	path, ok := c.store.ResolvePath(c.target)
	if !ok {
		return fmt.Errorf("%w: no base artifact for %s", models.ErrUpdate, c.target)
	}

	base, err := c.store.ReadArtifact(path)
	if err != nil {
		return fmt.Errorf("%w: reading base artifact: %v", models.ErrUpdate, err)
	}

	updated, err := c.trainer.Train(ctx, c.target, base, entries)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpdate, err)
	}

	// Commit first, then approve and invalidate. The cache keeps serving
	// the pre-update handle until the new file is fully on disk.
	if err := c.store.InstallArtifact(c.target, updated); err != nil {
		return fmt.Errorf("%w: installing updated artifact: %v", models.ErrUpdate, err)
	}

	digest, err := integrity.Digest(c.store.InstalledPath(c.target))
	if err != nil {
		return fmt.Errorf("%w: hashing updated artifact: %v", models.ErrUpdate, err)
	}
	c.verifier.Approve(c.target, digest)

	ok, err = c.verifier.Enforce(ctx, c.target)
	if err != nil {
		return fmt.Errorf("%w: verifying updated artifact: %v", models.ErrUpdate, err)
	}
	if !ok {
		return fmt.Errorf("%w: updated artifact failed verification", models.ErrUpdate)
	}

	c.loader.Invalidate(c.target)
	return nil
}

func (c *Collector) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
