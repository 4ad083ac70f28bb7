// Package template builds the prompt message lists sent to the completion
// service. The instruction is fixed per run; only the chunk content varies,
// and it is embedded verbatim so distinct chunks never produce identical
// messages.
package template

import (
	"fmt"

	"github.com/halcyonlab/textran/internal/llm"
)

const (
	DefaultSourceLang = "English"
	DefaultTargetLang = "Spanish"
)

// Chat wraps chunks of LaTeX source with a fixed translation instruction.
// The zero value uses the default language pair.
type Chat struct {
	SourceLang string
	TargetLang string
}

func NewChat(sourceLang, targetLang string) *Chat {
	return &Chat{SourceLang: sourceLang, TargetLang: targetLang}
}

func (c *Chat) languages() (string, string) {
	src, tgt := c.SourceLang, c.TargetLang
	if src == "" {
		src = DefaultSourceLang
	}
	if tgt == "" {
		tgt = DefaultTargetLang
	}
	return src, tgt
}

// SystemInstruction returns the fixed system prompt for the configured
// language pair.
func (c *Chat) SystemInstruction() string {
	src, tgt := c.languages()
	return fmt.Sprintf(`You are a professional %s to %s translator specializing in LaTeX documents.
Translate the natural-language content of the provided LaTeX fragment from %s into %s.

Rules:
- Preserve ALL LaTeX commands, environments, labels, references, and math exactly as given.
- Translate only human-readable text; never translate command names, labels, or citation keys.
- The fragment may start or end mid-sentence; translate it as-is without completing it.
- Return ONLY the translated fragment, fenced between triple backticks.`,
		src, tgt, src, tgt)
}

// CreateMessages builds the ordered prompt message list for one chunk. The
// chunk text is embedded verbatim in the user message.
func (c *Chat) CreateMessages(chunk string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: c.SystemInstruction()},
		{Role: llm.RoleUser, Content: chunk},
	}
}
