package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pders01/modelkeep/internal/events"
	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/predict"
	"github.com/pders01/modelkeep/internal/testutil"
)

func newTestManager(t *testing.T, opts Options) (*Manager, *testutil.TempModelDir) {
	t.Helper()

	dir := testutil.NewTempModelDir(t)
	opts.BundledDir = dir.BundledDir
	opts.DataDir = dir.DataDir
	if opts.Backend == nil {
		opts.Backend = &predict.StaticBackend{Default: "stub answer"}
	}

	m, err := New(opts)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m, dir
}

func TestNewRequiresBackend(t *testing.T) {
	dir := testutil.NewTempModelDir(t)

	_, err := New(Options{BundledDir: dir.BundledDir, DataDir: dir.DataDir})
	if err == nil {
		t.Error("expected error for missing backend")
	}
}

func TestNewRejectsUnknownTarget(t *testing.T) {
	dir := testutil.NewTempModelDir(t)

	_, err := New(Options{
		BundledDir:   dir.BundledDir,
		DataDir:      dir.DataDir,
		Backend:      &predict.StaticBackend{Default: "x"},
		UpdateTarget: models.Identity("bogus"),
	})
	if !errors.Is(err, models.ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	m, _ := newTestManager(t, Options{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Second start is a no-op
	if err := m.Start(context.Background()); err != nil {
		t.Errorf("restart should be a no-op, got %v", err)
	}

	m.Stop()
	// Second stop is a no-op
	m.Stop()
}

func TestRequestPrediction(t *testing.T) {
	m, dir := newTestManager(t, Options{})
	dir.WriteBundled(models.TextGenerator, "weights")

	got, err := m.RequestPrediction(context.Background(), models.TextGenerator, "hello there", "")
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	if got != "Stub answer." {
		t.Errorf("got %q", got)
	}
	if !m.IsAvailable(models.TextGenerator) {
		t.Error("identity should be available after prediction")
	}
	if got := m.Status(models.TextGenerator); got != models.StatusLoaded {
		t.Errorf("expected loaded, got %s", got)
	}
}

func TestRequestPredictionMissingModel(t *testing.T) {
	m, _ := newTestManager(t, Options{})

	_, err := m.RequestPrediction(context.Background(), models.SentimentAnalyzer, "hello", "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if m.IsAvailable(models.SentimentAnalyzer) {
		t.Error("failed identity must not be available")
	}
}

func TestRequestPredictionAsync(t *testing.T) {
	m, dir := newTestManager(t, Options{})
	dir.WriteBundled(models.TextGenerator, "weights")

	select {
	case res := <-m.RequestPredictionAsync(context.Background(), models.TextGenerator, "hello", ""):
		if res.Err != nil {
			t.Fatalf("async prediction failed: %v", res.Err)
		}
		if res.Output != "Stub answer." {
			t.Errorf("got %q", res.Output)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async result")
	}
}

func TestSubmitFeedbackFiltering(t *testing.T) {
	m, dir := newTestManager(t, Options{FeedbackThreshold: 100})
	dir.WriteBundled(models.TextGenerator, "weights")

	m.SubmitFeedback("good input", "good response", true)
	m.SubmitFeedback("ignored", "response", false)
	m.SubmitFeedback("   ", "response", true)
	m.SubmitFeedback("input", "", true)

	if got := m.PendingFeedback(); got != 1 {
		t.Errorf("expected 1 recorded entry, got %d", got)
	}
}

func TestFeedbackThresholdRetrains(t *testing.T) {
	m, dir := newTestManager(t, Options{FeedbackThreshold: 2})
	dir.WriteBundled(models.TextGenerator, "weights")
	ctx := context.Background()

	if _, err := m.Load(ctx, models.TextGenerator); err != nil {
		t.Fatalf("priming load failed: %v", err)
	}

	m.SubmitFeedback("turn on the lights", "lights on", true)
	m.SubmitFeedback("play some music", "music playing", true)
	m.collector.Wait()

	if m.IsAvailable(models.TextGenerator) {
		t.Error("update pass should have invalidated the handle")
	}

	// The retrained artifact is approved and loads cleanly
	if _, err := m.Load(ctx, models.TextGenerator); err != nil {
		t.Fatalf("reload after update failed: %v", err)
	}
}

func TestForceIntegrityCheck(t *testing.T) {
	m, dir := newTestManager(t, Options{})
	ctx := context.Background()

	dir.WriteBundled(models.TextGenerator, "weights")
	dir.CorruptInstalled(models.TextGenerator, []byte("tampered"))

	if err := m.ForceIntegrityCheck(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	h, err := m.Load(ctx, models.TextGenerator)
	if err != nil {
		t.Fatalf("load after sweep failed: %v", err)
	}
	if string(h.Payload) != "weights" {
		t.Errorf("expected restored bundled payload, got %q", h.Payload)
	}
}

func TestSubscribeReceivesAvailability(t *testing.T) {
	m, dir := newTestManager(t, Options{})
	dir.WriteBundled(models.TextGenerator, "weights")

	ch, cancel := m.Subscribe(8)
	defer cancel()

	if _, err := m.Load(context.Background(), models.TextGenerator); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.TypeAvailabilityChanged {
			t.Errorf("expected availability event, got %s", ev.Type)
		}
		if !ev.Available {
			t.Error("expected available=true")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for availability event")
	}
}

func TestFeedbackSurvivesRestart(t *testing.T) {
	m, dir := newTestManager(t, Options{FeedbackThreshold: 100})
	dir.WriteBundled(models.TextGenerator, "weights")

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	m.SubmitFeedback("remember me", "will do", true)
	m.Stop()

	reopened, err := New(Options{
		BundledDir:        dir.BundledDir,
		DataDir:           dir.DataDir,
		Backend:           &predict.StaticBackend{Default: "x"},
		FeedbackThreshold: 100,
	})
	if err != nil {
		t.Fatalf("failed to reopen manager: %v", err)
	}
	if err := reopened.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer reopened.Stop()

	if got := reopened.PendingFeedback(); got != 1 {
		t.Errorf("expected 1 restored entry, got %d", got)
	}
}
