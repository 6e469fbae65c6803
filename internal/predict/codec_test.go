package predict

import (
	"errors"
	"strings"
	"testing"

	"github.com/pders01/modelkeep/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "collapses whitespace runs",
			input: "hello\t\t  world",
			want:  "hello world",
		},
		{
			name:  "keeps newlines",
			input: "line one\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "strips control characters",
			input: "hel\x00lo\x07",
			want:  "hello",
		},
		{
			name:  "trims surrounding space",
			input: "   padded   ",
			want:  "padded",
		},
		{
			name:  "whitespace only",
			input: " \t\n ",
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxTokens int
		want      string
	}{
		{
			name:      "under budget untouched",
			input:     "one two three",
			maxTokens: 5,
			want:      "one two three",
		},
		{
			name:      "over budget truncated",
			input:     "one two three four five",
			maxTokens: 3,
			want:      "one two three",
		},
		{
			name:      "zero budget disables truncation",
			input:     "one two three",
			maxTokens: 0,
			want:      "one two three",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxTokens); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxTokens, got, tt.want)
			}
		})
	}
}

func TestEncodeInput(t *testing.T) {
	codec := Codec{MaxTokens: 4}

	t.Run("plain input", func(t *testing.T) {
		got, err := codec.EncodeInput("  what is   this ", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "what is this" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("context is prefixed", func(t *testing.T) {
		got, err := codec.EncodeInput("next", "earlier turn")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "earlier turn\nnext" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("token budget applies after prefixing", func(t *testing.T) {
		got, err := codec.EncodeInput("d e f", "a b c")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields := strings.Fields(got); len(fields) != 4 {
			t.Errorf("expected 4 tokens, got %d: %q", len(fields), got)
		}
	})

	t.Run("empty after normalization", func(t *testing.T) {
		if _, err := codec.EncodeInput(" \t ", "has context"); !errors.Is(err, models.ErrPredict) {
			t.Errorf("expected ErrPredict, got %v", err)
		}
	})
}

func TestDecodeOutput(t *testing.T) {
	codec := Codec{}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "sentence-cases and terminates",
			input: "the weather looks fine",
			want:  "The weather looks fine.",
		},
		{
			name:  "existing punctuation kept",
			input: "is that so?",
			want:  "Is that so?",
		},
		{
			name:  "exclamation kept",
			input: "great!",
			want:  "Great!",
		},
		{
			name:  "whitespace trimmed first",
			input: "  okay  ",
			want:  "Okay.",
		},
		{
			name:    "empty output",
			input:   "",
			wantErr: true,
		},
		{
			name:    "control noise only",
			input:   "\x00\x07 ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.DecodeOutput(tt.input)

			if tt.wantErr {
				if !errors.Is(err, models.ErrPredict) {
					t.Errorf("expected ErrPredict, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
