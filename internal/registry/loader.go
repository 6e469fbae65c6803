// Package registry holds the model cache and the loader that turns on-disk
// artifacts into runtime handles. At most one load runs per identity at a
// time; concurrent callers join the in-flight attempt.
package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pders01/modelkeep/internal/events"
	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/store"
)

// Fetcher acquires artifact bytes for a model that is absent on disk.
// Implementations are external collaborators (network, package manager).
type Fetcher interface {
	Fetch(ctx context.Context, id models.Identity) ([]byte, error)
}

// Loader orchestrates obtaining a usable model handle:
// cache → disk (verified) → acquisition → failure.
type Loader struct {
	cache    *Cache
	store    *store.Store
	verifier *integrity.Verifier
	fetcher  Fetcher
	bus      *events.Bus
	log      *zap.Logger

	group singleflight.Group
}

// NewLoader wires the loader. fetcher may be nil when no acquisition
// capability exists; bus may be nil when nobody listens.
func NewLoader(c *Cache, st *store.Store, v *integrity.Verifier, f Fetcher, bus *events.Bus, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		cache:    c,
		store:    st,
		verifier: v,
		fetcher:  f,
		bus:      bus,
		log:      log,
	}
}

// Cache exposes the loader's cache for status queries and invalidation.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Load returns a usable handle for the identity. A cached Loaded handle is
// returned without I/O. Concurrent callers for the same identity share one
// underlying artifact read and parse; all receive the same handle or the
// same error.
func (l *Loader) Load(ctx context.Context, id models.Identity) (*Handle, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownIdentity, id)
	}

	if h, ok := l.cache.Loaded(id); ok {
		return h, nil
	}

	v, err, _ := l.group.Do(id.String(), func() (any, error) {
		// The cache may have filled between the fast path and the flight
		// being scheduled.
		if h, ok := l.cache.Loaded(id); ok {
			return h, nil
		}
		return l.loadSlow(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Handle), nil
}

// loadSlow is the single in-flight load attempt for an identity.
func (l *Loader) loadSlow(ctx context.Context, id models.Identity) (*Handle, error) {
	l.cache.setLoading(id)

	h, err := l.attempt(ctx, id, true)
	if err != nil {
		l.cache.setFailed(id, err)
		l.publishAvailability(id, false, err)
		l.log.Warn("model load failed",
			zap.String("identity", id.String()), zap.Error(err))
		return nil, err
	}

	l.cache.setLoaded(id, h)
	l.publishAvailability(id, true, nil)
	l.log.Info("model loaded",
		zap.String("identity", id.String()),
		zap.String("digest", h.Digest))
	return h, nil
}

// attempt resolves, verifies, reads, and compiles the artifact. When the
// artifact is absent it acquires it once through the fetcher and retries
// exactly once; a second absence is terminal for this attempt.
func (l *Loader) attempt(ctx context.Context, id models.Identity, mayAcquire bool) (*Handle, error) {
	if _, ok := l.store.ResolvePath(id); !ok {
		if !mayAcquire {
			return nil, fmt.Errorf("%w: %s absent after acquisition", models.ErrNotFound, id)
		}
		if err := l.acquire(ctx, id); err != nil {
			return nil, err
		}
		return l.attempt(ctx, id, false)
	}

	ok, err := l.verifier.Enforce(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrIntegrity, id)
	}

	// Enforcement may have restored the bundled copy; resolve again so the
	// read sees the post-enforcement artifact.
	path, found := l.store.ResolvePath(id)
	if !found {
		return nil, fmt.Errorf("%w: %s vanished after enforcement", models.ErrNotFound, id)
	}

	data, err := l.store.ReadArtifact(path)
	if err != nil {
		return nil, err
	}

	digest, err := integrity.Digest(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	return Compile(id, digest, data)
}

// acquire fetches artifact bytes from the external capability and installs
// them. The installed copy still has to pass verification before trust.
func (l *Loader) acquire(ctx context.Context, id models.Identity) error {
	if l.fetcher == nil {
		return fmt.Errorf("%w: %s has no artifact and no fetcher is configured", models.ErrNotFound, id)
	}

	ev := events.NewEvent(events.TypeUpdateStarted, id)
	l.publish(ev)

	data, err := l.fetcher.Fetch(ctx, id)
	if err != nil {
		err = fmt.Errorf("%w: fetch %s: %v", models.ErrNotFound, id, err)
		l.publishFinished(ev.ID, id, err)
		return err
	}

	if err := l.store.InstallArtifact(id, data); err != nil {
		l.publishFinished(ev.ID, id, err)
		return err
	}

	// A fetched artifact is only trusted if its digest is approved.
	digest, err := integrity.Digest(l.store.InstalledPath(id))
	if err == nil {
		l.log.Info("acquired model artifact",
			zap.String("identity", id.String()),
			zap.String("digest", digest))
	}

	l.publishFinished(ev.ID, id, nil)
	return nil
}

func (l *Loader) publish(ev events.Event) {
	if l.bus != nil {
		l.bus.Publish(ev)
	}
}

func (l *Loader) publishAvailability(id models.Identity, available bool, err error) {
	ev := events.NewEvent(events.TypeAvailabilityChanged, id)
	ev.Available = available
	if err != nil {
		ev.Err = err.Error()
	}
	l.publish(ev)
}

func (l *Loader) publishFinished(correlationID string, id models.Identity, err error) {
	ev := events.NewEvent(events.TypeUpdateFinished, id)
	ev.ID = correlationID
	if err != nil {
		ev.Err = err.Error()
	}
	l.publish(ev)
}

// Invalidate drops the identity's handle so the next Load re-reads the
// artifact. Emits an availability change when a handle was live.
func (l *Loader) Invalidate(id models.Identity) {
	wasLoaded := l.cache.IsAvailable(id)
	l.cache.Invalidate(id)
	if wasLoaded {
		l.publishAvailability(id, false, nil)
	}
}
