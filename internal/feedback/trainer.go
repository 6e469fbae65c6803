package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/registry"
)

// Trainer is the incremental update pipeline: it consumes the current
// artifact plus buffered feedback and produces a new candidate artifact.
// Implementations may call out to a real training runtime.
type Trainer interface {
	Train(ctx context.Context, id models.Identity, base []byte, entries []models.FeedbackEntry) ([]byte, error)
}

// ExampleTrainer is the built-in incremental pipeline: it folds feedback
// pairs into the artifact body as example lines. Deployments with a real
// fine-tuning runtime inject their own Trainer instead.
type ExampleTrainer struct{}

// Train implements Trainer.
func (ExampleTrainer) Train(ctx context.Context, id models.Identity, base []byte, entries []models.FeedbackEntry) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpdate, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no feedback entries", models.ErrUpdate)
	}

	h, err := registry.Compile(id, "", base)
	if err != nil {
		return nil, fmt.Errorf("%w: base artifact: %v", models.ErrUpdate, err)
	}

	var b strings.Builder
	b.Write(h.Payload)
	if h.Payload[len(h.Payload)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, e := range entries {
		b.WriteString("example\t")
		b.WriteString(escapeTabs(e.Input))
		b.WriteByte('\t')
		b.WriteString(escapeTabs(e.Expected))
		b.WriteByte('\n')
	}

	return registry.EncodeArtifact([]byte(b.String())), nil
}

func escapeTabs(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
