package cmd

import (
	"context"
	"testing"

	"github.com/pders01/modelkeep/internal/models"
)

func TestModelsCommand(t *testing.T) {
	dir := setupTestEnv(t)
	modelsCmd.SetContext(context.Background())

	dir.WriteBundled(models.TextGenerator, "weights")
	dir.WriteInstalled(models.IntentClassifier, "weights")

	// Reset flags
	modelsJSON = false
	modelsToon = false

	if err := runModels(modelsCmd, nil); err != nil {
		t.Fatalf("models command failed: %v", err)
	}
}

func TestModelsCommandJSON(t *testing.T) {
	dir := setupTestEnv(t)
	modelsCmd.SetContext(context.Background())

	dir.WriteBundled(models.TextGenerator, "weights")

	modelsJSON = true
	defer func() { modelsJSON = false }()

	if err := runModels(modelsCmd, nil); err != nil {
		t.Fatalf("models command failed: %v", err)
	}
}

func TestShortDigest(t *testing.T) {
	tests := []struct {
		name   string
		digest string
		want   string
	}{
		{
			name:   "long digest truncated",
			digest: "0123456789abcdef0123456789abcdef",
			want:   "0123456789abcdef…",
		},
		{
			name:   "short digest untouched",
			digest: "abc",
			want:   "abc",
		},
		{
			name:   "empty digest",
			digest: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortDigest(tt.digest); got != tt.want {
				t.Errorf("shortDigest(%q) = %q, want %q", tt.digest, got, tt.want)
			}
		})
	}
}
