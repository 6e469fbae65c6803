// Package integrity enforces the verified-supply-chain invariant: only an
// artifact whose digest matches the bundled baseline, or an explicitly
// approved signature, may ever be used for inference. Untrusted installed
// artifacts are replaced with the bundled copy.
package integrity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/store"
)

// Verifier computes artifact digests and decides whether they are trusted.
type Verifier struct {
	store *store.Store
	log   *zap.Logger

	// baselines caches the bundled artifact digest per identity for the
	// process lifetime.
	baselineMu sync.Mutex
	baselines  map[models.Identity]string

	// approved holds extra trusted digests: the configured list plus
	// digests adopted from successful update passes.
	approvedMu sync.RWMutex
	approved   map[string]struct{}

	// restoreMu serializes delete+recopy so concurrent enforcement cannot
	// corrupt the installed artifact.
	restoreMu sync.Mutex
}

// NewVerifier creates a verifier trusting the bundled baselines plus the
// given approved digests (hex SHA-256).
func NewVerifier(st *store.Store, approved []string, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}

	set := make(map[string]struct{}, len(approved))
	for _, digest := range approved {
		set[digest] = struct{}{}
	}

	return &Verifier{
		store:     st,
		log:       log,
		baselines: make(map[models.Identity]string),
		approved:  set,
	}
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash artifact: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// BaselineSignature returns the digest of the bundled artifact, computed
// once per identity and cached for the process lifetime.
func (v *Verifier) BaselineSignature(id models.Identity) (string, error) {
	v.baselineMu.Lock()
	defer v.baselineMu.Unlock()

	if digest, ok := v.baselines[id]; ok {
		return digest, nil
	}

	bundled, ok := v.store.BundledPath(id)
	if !ok {
		return "", fmt.Errorf("%w: no bundled artifact for %s", models.ErrNotFound, id)
	}

	digest, err := Digest(bundled)
	if err != nil {
		return "", fmt.Errorf("baseline for %s: %w", id, err)
	}

	v.baselines[id] = digest
	return digest, nil
}

// Approve records a digest as trusted for the rest of the process lifetime.
// Called by the update pipeline after it commits a new installed artifact.
func (v *Verifier) Approve(id models.Identity, digest string) {
	v.approvedMu.Lock()
	v.approved[digest] = struct{}{}
	v.approvedMu.Unlock()

	v.log.Info("approved new artifact signature",
		zap.String("identity", id.String()),
		zap.String("digest", digest))
}

// Verify reports whether the artifact at path is trusted. A missing or
// unreadable file is untrusted: absence of proof is failure, not success.
func (v *Verifier) Verify(ctx context.Context, id models.Identity, path string) bool {
	if ctx.Err() != nil {
		return false
	}

	digest, err := Digest(path)
	if err != nil {
		v.log.Warn("artifact digest failed",
			zap.String("identity", id.String()),
			zap.String("path", path),
			zap.Error(err))
		return false
	}

	if baseline, err := v.BaselineSignature(id); err == nil && digest == baseline {
		return true
	}

	v.approvedMu.RLock()
	_, ok := v.approved[digest]
	v.approvedMu.RUnlock()

	return ok
}

// Enforce verifies the identity's preferred artifact and, if the installed
// copy is untrusted, restores the bundled one before re-verifying. Safe to
// call concurrently with itself.
func (v *Verifier) Enforce(ctx context.Context, id models.Identity) (bool, error) {
	installed := v.store.InstalledPath(id)

	if !v.store.Exists(installed) {
		// Nothing installed: the bundled artifact only needs to match
		// its own baseline.
		bundled, ok := v.store.BundledPath(id)
		if !ok {
			return false, fmt.Errorf("%w: no artifact for %s", models.ErrNotFound, id)
		}
		return v.Verify(ctx, id, bundled), nil
	}

	if v.Verify(ctx, id, installed) {
		return true, nil
	}

	v.restoreMu.Lock()
	defer v.restoreMu.Unlock()

	// A concurrent Enforce may have restored the artifact while this one
	// waited for the lock.
	if v.Verify(ctx, id, installed) {
		return true, nil
	}

	v.log.Warn("untrusted installed artifact, restoring bundled copy",
		zap.String("identity", id.String()),
		zap.String("path", installed))

	if err := v.store.RemoveInstalled(id); err != nil {
		return false, fmt.Errorf("%w: removal during restore: %v", models.ErrIntegrity, err)
	}
	if err := v.store.RestoreBundled(id); err != nil {
		return false, fmt.Errorf("%w: restore from bundle: %v", models.ErrIntegrity, err)
	}

	return v.Verify(ctx, id, installed), nil
}

// Sweep runs Enforce for every identity with an installed artifact,
// hashing in parallel. Best-effort hardening; load attempts verify
// independently.
func (v *Verifier) Sweep(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, id := range models.AllIdentities() {
		if !v.store.Exists(v.store.InstalledPath(id)) {
			continue
		}

		eg.Go(func() error {
			ok, err := v.Enforce(ctx, id)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", id, err)
			}
			if !ok {
				return fmt.Errorf("sweep %s: %w", id, models.ErrIntegrity)
			}
			return nil
		})
	}

	return eg.Wait()
}

// RunSweeper runs periodic sweeps until the context is cancelled.
func (v *Verifier) RunSweeper(ctx context.Context, interval time.Duration) {
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
			if err := v.Sweep(ctx); err != nil {
				v.log.Warn("integrity sweep finished with errors", zap.Error(err))
			}
		}
	}
}
