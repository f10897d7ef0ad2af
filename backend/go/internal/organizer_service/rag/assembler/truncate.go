package assembler

import (
	"github.com/pkoukk/tiktoken-go"
)

// Truncator caps the size of file content before it enters the context.
type Truncator interface {
	Truncate(text string) string
}

// NoTruncation returns the text unchanged.
type NoTruncation struct{}

func (NoTruncation) Truncate(text string) string { return text }

// approxRunesPerToken is used when no tokenizer is available.
const approxRunesPerToken = 4

// TokenTruncator keeps the first MaxTokens cl100k_base tokens.
type TokenTruncator struct {
	maxTokens int
	tokenizer *tiktoken.Tiktoken
}

// NewTokenTruncator returns a truncator for maxTokens. maxTokens <= 0 disables
// truncation. If the encoding cannot be loaded the limit is applied to runes
// instead, at approxRunesPerToken runes per token.
func NewTokenTruncator(maxTokens int) *TokenTruncator {
	t := &TokenTruncator{maxTokens: maxTokens}
	if maxTokens <= 0 {
		return t
	}
	if tke, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		t.tokenizer = tke
	}
	return t
}

func (t *TokenTruncator) Truncate(text string) string {
	if t.maxTokens <= 0 || text == "" {
		return text
	}
	if t.tokenizer == nil {
		runes := []rune(text)
		limit := t.maxTokens * approxRunesPerToken
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}
	tokens := t.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	return t.tokenizer.Decode(tokens[:t.maxTokens])
}
