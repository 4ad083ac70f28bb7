// Package llm defines the completion-client boundary: role-tagged messages in,
// a structured response with generated text and optional token usage out.
package llm

import "context"

// Message roles, matching the chat completions wire format.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single role-tagged text unit of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting attached to a response. Upstream services may
// omit it entirely, so responses carry it as a pointer.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChoiceMessage is the generated message inside a choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion alternative.
type Choice struct {
	Message ChoiceMessage `json:"message"`
}

// Response is the result of one completion request.
type Response struct {
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Text returns the generated text of the first choice, or "" when the
// response carries no choices. Missing fields are not an error here; the
// caller decides whether an empty completion is acceptable.
func (r *Response) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Completer executes one completion request. Implementations own transport
// concerns (timeouts, retries); a failed call is reported as an error
// classified through apperrors.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
}
