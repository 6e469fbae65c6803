// Package predict turns raw interaction text into decoded model output.
// The encode/decode transforms are pure; inference runs on a bounded
// worker pool so a slow prediction never blocks the caller's goroutine.
package predict

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
)

// Result is the asynchronous completion of a prediction.
type Result struct {
	Output   string
	Err      error
	Duration time.Duration
}

// Predictor obtains a model handle, encodes input, and runs inference.
type Predictor struct {
	loader  *registry.Loader
	backend Backend
	codec   Codec
	log     *zap.Logger

	// slots bounds concurrent inference work.
	slots chan struct{}
}

// New wires a predictor with the given worker pool size and token budget.
func New(loader *registry.Loader, backend Backend, workers, maxTokens int, log *zap.Logger) *Predictor {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Predictor{
		loader:  loader,
		backend: backend,
		codec:   Codec{MaxTokens: maxTokens},
		log:     log,
		slots:   make(chan struct{}, workers),
	}
}

// Codec exposes the predictor's transform configuration.
func (p *Predictor) Codec() Codec {
	return p.codec
}

// Predict runs the full path synchronously: load, encode, infer, decode.
// The caller's goroutine blocks, but inference occupies a worker slot so
// overall concurrency stays bounded.
func (p *Predictor) Predict(ctx context.Context, id models.Identity, rawText, conversationContext string) (string, error) {
	handle, err := p.loader.Load(ctx, id)
	if err != nil {
		return "", err
	}

	prompt, err := p.codec.EncodeInput(rawText, conversationContext)
	if err != nil {
		return "", err
	}

	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for inference worker: %v", models.ErrTimeout, ctx.Err())
	}

	raw, err := p.backend.Infer(ctx, handle, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: inference for %s: %v", models.ErrPredict, id, err)
	}

	out, err := p.codec.DecodeOutput(raw)
	if err != nil {
		return "", err
	}

	return out, nil
}

// PredictAsync dispatches Predict to a goroutine and delivers the result
// through the returned channel. The channel receives exactly one Result;
// callers must tolerate a late-arriving result after cancellation.
func (p *Predictor) PredictAsync(ctx context.Context, id models.Identity, rawText, conversationContext string) <-chan Result {
	out := make(chan Result, 1)

	go func() {
		start := time.Now()
		text, err := p.Predict(ctx, id, rawText, conversationContext)
		if err != nil {
			p.log.Debug("prediction failed",
				zap.String("identity", id.String()), zap.Error(err))
		}
		out <- Result{Output: text, Err: err, Duration: time.Since(start)}
		close(out)
	}()

	return out
}
