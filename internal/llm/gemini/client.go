package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"recruit-backend/internal/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash-latest"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Completer on the Gemini API.
type Client struct {
	models contentGenerator
	model  string
}

// NewClient creates a client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &Client{models: client.Models, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends prompt and returns the concatenated text parts of the response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini client is not initialized")
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini http status %d: %s: %w", apiErr.Code, apiErr.Status, err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	out := responseText(resp)
	if out == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}

var _ llm.Completer = (*Client)(nil)
