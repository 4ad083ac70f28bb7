// Package gemini adapts the Gemini API to the common completion interface.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/httpclient"
	"github.com/halcyonlab/textran/internal/llm"
)

// Client sends completion requests to the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ llm.Completer = (*Client)(nil)

// NewClient creates a Gemini-backed completer.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	// Note: option.WithHTTPClient interferes with the genai library's internal
	// header injection for API keys, causing 403 errors. Timeouts are enforced
	// via context in Complete instead.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Complete sends the prompt messages to Gemini. System-role messages become
// the model's system instruction; the remaining messages become content parts.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	var parts []genai.Part
	c.model.SystemInstruction = nil
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			c.model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(m.Content)},
			}
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(parts) == 0 {
		return nil, apperrors.New(apperrors.KindBadRequest, "no user content to complete", nil)
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, apperrors.Validation(err)
	}

	out := &llm.Response{
		Choices: []llm.Choice{{Message: llm.ChoiceMessage{Content: text}}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if combined != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
