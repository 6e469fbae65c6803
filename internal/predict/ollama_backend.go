package predict

import (
	"context"
	"fmt"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/ollama"
	"github.com/pders01/modelkeep/internal/registry"
)

// OllamaBackend runs inference through a local Ollama runtime. The loaded
// handle gates availability; generation is delegated to the runtime.
type OllamaBackend struct {
	client *ollama.Client
}

// NewOllamaBackend creates the backend for the given endpoint and model.
func NewOllamaBackend(url, model string) (*OllamaBackend, error) {
	client, err := ollama.NewClient(url, model)
	if err != nil {
		return nil, err
	}
	return &OllamaBackend{client: client}, nil
}

// Infer implements Backend.
func (b *OllamaBackend) Infer(ctx context.Context, h *registry.Handle, prompt string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("%w: no model handle", models.ErrPredict)
	}

	out, err := b.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrPredict, err)
	}
	return out, nil
}
