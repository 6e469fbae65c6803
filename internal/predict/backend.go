package predict

import (
	"context"
	"fmt"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
)

// Backend is the inference capability injected into the Predictor.
// Variants: the Ollama-backed runtime and the deterministic stub below.
type Backend interface {
	// Infer produces raw model output for an encoded prompt using the
	// given loaded handle.
	Infer(ctx context.Context, h *registry.Handle, prompt string) (string, error)
}

// StaticBackend is a deterministic stub for tests and offline operation.
// It answers from a fixed table keyed by encoded prompt.
type StaticBackend struct {
	// Responses maps encoded prompts to canned outputs.
	Responses map[string]string

	// Default is returned for prompts not in Responses. Empty means no
	// output, which the codec reports as ErrPredict.
	Default string

	// Err, when set, is returned for every call.
	Err error
}

// Infer implements Backend.
func (b *StaticBackend) Infer(ctx context.Context, h *registry.Handle, prompt string) (string, error) {
	if b.Err != nil {
		return "", b.Err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	if h == nil {
		return "", fmt.Errorf("%w: no model handle", models.ErrPredict)
	}

	if out, ok := b.Responses[prompt]; ok {
		return out, nil
	}
	return b.Default, nil
}
