// Package token estimates token counts for raw text and prompt message lists.
// Counting uses a grapheme-cluster heuristic: splitter and counter agree that
// a grapheme cluster is the smallest indivisible unit, so no chunk boundary
// can fall inside one.
package token

import (
	"github.com/halcyonlab/textran/internal/llm"
	"github.com/rivo/uniseg"
)

// CountFunc maps text to an estimated token count.
type CountFunc func(text string) int

// DefaultCharsPerToken is the average grapheme-per-token ratio for mixed
// LaTeX source (markup plus natural language).
const DefaultCharsPerToken = 4

const (
	// messageOverhead is the per-message framing cost (role, separators) in
	// the chat completions tokenization scheme.
	messageOverhead = 4
	// replyPriming is the fixed cost of the assistant reply preamble.
	replyPriming = 3
)

// Counter estimates token counts. The zero value uses DefaultCharsPerToken.
type Counter struct {
	CharsPerToken int
}

func NewCounter() *Counter {
	return &Counter{CharsPerToken: DefaultCharsPerToken}
}

func (c *Counter) charsPerToken() int {
	if c.CharsPerToken > 0 {
		return c.CharsPerToken
	}
	return DefaultCharsPerToken
}

// CountText estimates tokens for a plain text string. Empty text counts as
// zero; any non-empty text counts as at least one token.
func (c *Counter) CountText(text string) int {
	if text == "" {
		return 0
	}
	cpt := c.charsPerToken()
	n := uniseg.GraphemeClusterCount(text)
	count := (n + cpt - 1) / cpt
	if count < 1 {
		count = 1
	}
	return count
}

// CountMessages estimates the total token count for a prompt message list,
// accounting for per-message framing overhead and reply priming.
func (c *Counter) CountMessages(messages []llm.Message) int {
	if len(messages) == 0 {
		return 0
	}
	total := 0
	for _, m := range messages {
		total += messageOverhead
		total += c.CountText(m.Role)
		total += c.CountText(m.Content)
	}
	total += replyPriming
	return total
}
