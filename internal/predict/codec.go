package predict

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pders01/modelkeep/internal/models"
)

// Codec performs the pure input/output transforms around inference.
// No side effects; testable without any model.
type Codec struct {
	// MaxTokens bounds the encoded input. Whitespace-delimited words are
	// used as the token proxy.
	MaxTokens int
}

// EncodeInput normalizes raw text, prefixes the conversation context, and
// truncates to the token budget. Returns ErrPredict for input that
// normalizes to nothing.
func (c Codec) EncodeInput(raw, conversationContext string) (string, error) {
	text := Normalize(raw)
	if text == "" {
		return "", fmt.Errorf("%w: input is empty after normalization", models.ErrPredict)
	}

	if ctx := Normalize(conversationContext); ctx != "" {
		text = ctx + "\n" + text
	}

	if c.MaxTokens > 0 {
		text = Truncate(text, c.MaxTokens)
	}

	return text, nil
}

// DecodeOutput cleans up a model response: trims, sentence-cases the first
// rune, and ensures terminal punctuation. Returns ErrPredict when the
// model produced no usable output.
func (c Codec) DecodeOutput(raw string) (string, error) {
	text := Normalize(raw)
	if text == "" {
		return "", fmt.Errorf("%w: model returned no output", models.ErrPredict)
	}

	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	text = string(runes)

	switch runes[len(runes)-1] {
	case '.', '!', '?':
	default:
		text += "."
	}

	return text, nil
}

// Normalize collapses whitespace runs into single spaces (newlines kept),
// strips other control characters, and trims.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune('\n')
			lastSpace = true
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Truncate keeps the first maxTokens whitespace-delimited words.
func Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return s
	}

	fields := strings.Fields(s)
	if len(fields) <= maxTokens {
		return s
	}

	return strings.Join(fields[:maxTokens], " ")
}
