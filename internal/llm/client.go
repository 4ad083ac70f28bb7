package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/httpclient"
	"github.com/halcyonlab/textran/internal/logger"
)

// Config holds the connection settings for an OpenAI-compatible service.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg Config
}

var _ Completer = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{cfg: cfg}
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.cfg.Model
}

type requestData struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Complete sends one chat completions request and decodes the response.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Response, error) {
	body, err := json.Marshal(requestData{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	client := httpclient.GetDefaultClient()
	respBody, resp, err := httpclient.DoAndRead(client, httpReq)
	if err != nil {
		return nil, apperrors.New(
			apperrors.KindTransient,
			"Completion request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		details := parseErrorDetails(respBody)
		return nil, classifyStatusError(resp.StatusCode, resp.Status, details)
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"Completion response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}
	if len(result.Choices) == 0 {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"Completion response contained no choices.",
			fmt.Errorf("empty choices in response"),
		)
	}

	if result.Usage != nil {
		logger.Debug("Completion response", "status", resp.Status,
			"usage_prompt", result.Usage.PromptTokens, "usage_completion", result.Usage.CompletionTokens)
	} else {
		logger.Debug("Completion response without usage accounting", "status", resp.Status)
	}

	return &result, nil
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyStatusError(statusCode int, status string, details errorDetails) error {
	cause := fmt.Errorf("completion status=%s type=%s code=%s message=%s",
		status, details.Type, details.codeString(), details.Message)

	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.New(
			apperrors.KindRateLimit,
			"Completion API rate limit exceeded (429): please try again later.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("Completion API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		if isModelNotFound(details) {
			return apperrors.New(
				apperrors.KindBadRequest,
				"The model does not exist or you do not have access to it.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			"Completion API resource not found (404).",
			cause,
		)
	default:
		if statusCode >= 500 {
			return apperrors.New(
				apperrors.KindTransient,
				fmt.Sprintf("Completion API server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("Completion API error (%d): %s", statusCode, status),
			cause,
		)
	}
}

func isModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
