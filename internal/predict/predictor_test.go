package predict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pders01/modelkeep/internal/events"
	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
	"github.com/pders01/modelkeep/internal/store"
	"github.com/pders01/modelkeep/internal/testutil"
)

func newTestPredictor(t *testing.T, backend Backend, workers int) (*Predictor, *testutil.TempModelDir) {
	t.Helper()

	dir := testutil.NewTempModelDir(t)
	st, err := store.New(dir.BundledDir, dir.DataDir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	v := integrity.NewVerifier(st, nil, nil)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	loader := registry.NewLoader(registry.NewCache(), st, v, nil, bus, nil)
	return New(loader, backend, workers, 0, nil), dir
}

func TestPredict(t *testing.T) {
	backend := &StaticBackend{
		Responses: map[string]string{
			"what is this": "a canned answer",
		},
		Default: "fallback answer",
	}
	p, dir := newTestPredictor(t, backend, 2)
	dir.WriteBundled(models.TextGenerator, "weights")

	got, err := p.Predict(context.Background(), models.TextGenerator, "  what is   this ", "")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if got != "A canned answer." {
		t.Errorf("got %q", got)
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	p, _ := newTestPredictor(t, &StaticBackend{Default: "irrelevant"}, 2)

	_, err := p.Predict(context.Background(), models.TextGenerator, "hello", "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPredictBackendFailure(t *testing.T) {
	backend := &StaticBackend{Err: errors.New("runtime crashed")}
	p, dir := newTestPredictor(t, backend, 2)
	dir.WriteBundled(models.TextGenerator, "weights")

	_, err := p.Predict(context.Background(), models.TextGenerator, "hello", "")
	if !errors.Is(err, models.ErrPredict) {
		t.Errorf("expected ErrPredict, got %v", err)
	}
}

func TestPredictEmptyModelOutput(t *testing.T) {
	p, dir := newTestPredictor(t, &StaticBackend{}, 2)
	dir.WriteBundled(models.TextGenerator, "weights")

	_, err := p.Predict(context.Background(), models.TextGenerator, "hello", "")
	if !errors.Is(err, models.ErrPredict) {
		t.Errorf("expected ErrPredict, got %v", err)
	}
}

func TestPredictEmptyInput(t *testing.T) {
	p, dir := newTestPredictor(t, &StaticBackend{Default: "irrelevant"}, 2)
	dir.WriteBundled(models.TextGenerator, "weights")

	_, err := p.Predict(context.Background(), models.TextGenerator, "   ", "")
	if !errors.Is(err, models.ErrPredict) {
		t.Errorf("expected ErrPredict, got %v", err)
	}
}

func TestPredictAsync(t *testing.T) {
	p, dir := newTestPredictor(t, &StaticBackend{Default: "async answer"}, 2)
	dir.WriteBundled(models.TextGenerator, "weights")

	ch := p.PredictAsync(context.Background(), models.TextGenerator, "hello", "")

	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("async predict failed: %v", res.Err)
		}
		if res.Output != "Async answer." {
			t.Errorf("got %q", res.Output)
		}
		if res.Duration < 0 {
			t.Errorf("negative duration: %v", res.Duration)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async result")
	}

	// The channel closes after its single result
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after result")
	}
}

// blockingBackend parks in Infer until released, to hold a worker slot.
type blockingBackend struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Infer(ctx context.Context, h *registry.Handle, prompt string) (string, error) {
	close(b.entered)
	select {
	case <-b.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestPredictWorkerSlotTimeout(t *testing.T) {
	backend := &blockingBackend{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p, dir := newTestPredictor(t, backend, 1)
	dir.WriteBundled(models.TextGenerator, "weights")

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Predict(context.Background(), models.TextGenerator, "first", "")
	}()

	// Wait until the single slot is occupied
	select {
	case <-backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first prediction never reached the backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Predict(ctx, models.TextGenerator, "second", "")
	if !errors.Is(err, models.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	close(backend.release)
	<-done
}
