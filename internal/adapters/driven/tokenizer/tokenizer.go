// Package tokenizer counts prompt tokens with tiktoken.
package tokenizer

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/logger"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// fallbackEncoding serves models tiktoken does not know (Gemini, Claude,
// local models). Counts are then approximate but the same order of size.
const fallbackEncoding = "cl100k_base"

// Counter counts tokens for one model. The encoding is loaded on first use;
// when it cannot be loaded (tiktoken fetches BPE ranks over the network on
// first use) the character estimate is used instead.
type Counter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// New creates a counter for model.
func New(model string) *Counter {
	return &Counter{model: model}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	c.once.Do(c.load)
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	c.once.Do(c.load)
	return c.enc != nil
}

func (c *Counter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err == nil {
		c.enc = enc
		return
	}

	enc, err = tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		logger.Warn("Token encoding unavailable, estimating from length: %v", err)
		return
	}
	c.enc = enc
}

// Estimate approximates tokens as four characters each.
func Estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
