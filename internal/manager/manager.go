// Package manager wires the model lifecycle services into one facade.
// Everything is dependency-injected and constructed once at process start;
// there are no package-level singletons.
package manager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pders01/modelkeep/internal/events"
	"github.com/pders01/modelkeep/internal/feedback"
	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/predict"
	"github.com/pders01/modelkeep/internal/registry"
	"github.com/pders01/modelkeep/internal/store"
)

// Options configures a Manager.
type Options struct {
	// BundledDir holds the shipped read-only artifacts.
	BundledDir string

	// DataDir is the writable per-install base directory.
	DataDir string

	// ApprovedSignatures lists extra trusted digests (hex SHA-256).
	ApprovedSignatures []string

	// SweepInterval is the period between integrity sweeps. Zero selects
	// one hour.
	SweepInterval time.Duration

	// FeedbackThreshold is the buffer size that triggers an update pass.
	// Zero selects the default.
	FeedbackThreshold int

	// FeedbackInterval is the period between timer-driven update passes.
	// Zero selects one hour.
	FeedbackInterval time.Duration

	// UpdateTarget is the identity improved by feedback. Zero value
	// selects the text generator.
	UpdateTarget models.Identity

	// Backend is the inference capability. Required.
	Backend predict.Backend

	// Fetcher acquires absent artifacts. Optional.
	Fetcher registry.Fetcher

	// Trainer is the update pipeline. Nil selects the built-in
	// example-folding trainer.
	Trainer feedback.Trainer

	// Workers bounds concurrent inference. Zero selects the default.
	Workers int

	// MaxTokens bounds encoded prediction input. Zero disables truncation.
	MaxTokens int

	// Logger receives diagnostics. Nil discards them.
	Logger *zap.Logger
}

// Manager is the facade collaborators call into.
type Manager struct {
	store     *store.Store
	verifier  *integrity.Verifier
	loader    *registry.Loader
	predictor *predict.Predictor
	collector *feedback.Collector
	watcher   *integrity.TamperWatcher
	bus       *events.Bus
	log       *zap.Logger

	sweepInterval    time.Duration
	feedbackInterval time.Duration

	cancel  context.CancelFunc
	started bool
}

// New constructs the service graph. Background loops do not run until
// Start is called.
func New(opts Options) (*Manager, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("manager: inference backend is required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.UpdateTarget == "" {
		opts.UpdateTarget = models.TextGenerator
	}
	if !opts.UpdateTarget.Valid() {
		return nil, fmt.Errorf("%w: update target %q", models.ErrUnknownIdentity, opts.UpdateTarget)
	}

	st, err := store.New(opts.BundledDir, opts.DataDir)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	verifier := integrity.NewVerifier(st, opts.ApprovedSignatures, log)
	loader := registry.NewLoader(registry.NewCache(), st, verifier, opts.Fetcher, bus, log)
	predictor := predict.New(loader, opts.Backend, opts.Workers, opts.MaxTokens, log)

	trainer := opts.Trainer
	if trainer == nil {
		trainer = feedback.ExampleTrainer{}
	}
	collector := feedback.NewCollector(opts.UpdateTarget, trainer, st, verifier, loader, bus, opts.FeedbackThreshold, log)

	watcher, err := integrity.NewTamperWatcher(verifier, st, log)
	if err != nil {
		return nil, fmt.Errorf("manager: creating tamper watcher: %w", err)
	}

	return &Manager{
		store:            st,
		verifier:         verifier,
		loader:           loader,
		predictor:        predictor,
		collector:        collector,
		watcher:          watcher,
		bus:              bus,
		log:              log,
		sweepInterval:    opts.SweepInterval,
		feedbackInterval: opts.FeedbackInterval,
	}, nil
}

// Start restores persisted feedback and launches the background loops:
// periodic integrity sweep, timer-driven update passes, and the tamper
// watcher.
func (m *Manager) Start(ctx context.Context) error {
	if m.started {
		return nil
	}
	m.started = true

	if err := m.collector.LoadPersisted(); err != nil {
		m.log.Warn("failed to restore persisted feedback", zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.verifier.RunSweeper(runCtx, m.sweepInterval)
	go m.collector.Run(runCtx, m.feedbackInterval)

	if err := m.watcher.Start(runCtx); err != nil {
		m.log.Warn("tamper watcher not started", zap.Error(err))
	}

	return nil
}

// Stop shuts the background loops down, waits for in-flight update passes,
// and flushes buffered feedback.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false

	m.cancel()
	m.watcher.Stop()
	m.collector.Wait()

	if err := m.collector.Flush(); err != nil {
		m.log.Warn("failed to flush feedback buffer", zap.Error(err))
	}

	m.bus.Close()
}

// RequestPrediction produces a decoded model response for raw interaction
// text. Callers keep a non-ML fallback for typed failures.
func (m *Manager) RequestPrediction(ctx context.Context, id models.Identity, rawText, conversationContext string) (string, error) {
	return m.predictor.Predict(ctx, id, rawText, conversationContext)
}

// RequestPredictionAsync is the non-blocking variant; the channel receives
// exactly one result.
func (m *Manager) RequestPredictionAsync(ctx context.Context, id models.Identity, rawText, conversationContext string) <-chan predict.Result {
	return m.predictor.PredictAsync(ctx, id, rawText, conversationContext)
}

// SubmitFeedback records an interaction judged by the caller. Only helpful
// interactions become training examples.
func (m *Manager) SubmitFeedback(rawInput, rawResponse string, wasHelpful bool) {
	if !wasHelpful {
		return
	}

	input := predict.Normalize(rawInput)
	response := predict.Normalize(rawResponse)
	if input == "" || response == "" {
		return
	}

	m.collector.Record(input, response)
}

// IsAvailable reports whether the identity holds a live, verified handle.
func (m *Manager) IsAvailable(id models.Identity) bool {
	return m.loader.Cache().IsAvailable(id)
}

// Status returns the identity's lifecycle status.
func (m *Manager) Status(id models.Identity) models.Status {
	return m.loader.Cache().Status(id)
}

// Load obtains a verified handle, loading the artifact if necessary.
func (m *Manager) Load(ctx context.Context, id models.Identity) (*registry.Handle, error) {
	return m.loader.Load(ctx, id)
}

// ForceIntegrityCheck sweeps every installed artifact immediately.
func (m *Manager) ForceIntegrityCheck(ctx context.Context) error {
	return m.verifier.Sweep(ctx)
}

// PendingFeedback returns the current feedback buffer length.
func (m *Manager) PendingFeedback() int {
	return m.collector.Pending()
}

// Subscribe registers a lifecycle event subscriber.
func (m *Manager) Subscribe(buffer int) (<-chan events.Event, func()) {
	return m.bus.Subscribe(buffer)
}

// Store exposes the artifact store for CLI inspection commands.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Verifier exposes the integrity verifier for CLI inspection commands.
func (m *Manager) Verifier() *integrity.Verifier {
	return m.verifier
}
