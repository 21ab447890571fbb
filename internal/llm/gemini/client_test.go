package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"recruit-backend/internal/llm"
)

type fakeModels struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompt += p.Text
		}
	}
	return f.resp, f.err
}

func TestCompleteJoinsTextParts(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "```json"}, {Text: `{"matchPercentage":75}`}, {Text: "```"}}},
		}},
	}}
	c := &Client{models: fake, model: DefaultModel}

	out, err := c.Complete(context.Background(), "score")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"matchPercentage\":75}\n```", out)
	assert.Equal(t, "gemini-1.5-flash-latest", fake.model)
	assert.Equal(t, "score", fake.prompt)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
}

func TestCompleteEmptyResponse(t *testing.T) {
	c := &Client{models: &fakeModels{resp: &genai.GenerateContentResponse{}}, model: DefaultModel}
	_, err := c.Complete(context.Background(), "score")
	require.Error(t, err)
}

func TestCompleteMapsAPIErrorForRetry(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	c := &Client{models: &fakeModels{err: apiErr}, model: DefaultModel}

	_, err := c.Complete(context.Background(), "score")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "http status 429"))
	assert.True(t, llm.ShouldRetry(err))

	var unwrapped genai.APIError
	assert.True(t, errors.As(err, &unwrapped))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "")
	require.Error(t, err)
}
