package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"regwatch/internal/config"
	"regwatch/internal/ports"
)

// GeminiClient implements ports.Completer against the Gemini API, with
// the retry policy applied around every call.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	retry  RetryPolicy
	logger *slog.Logger
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.3),
	}

	return &GeminiClient{
		client: client,
		model:  model,
		retry:  NewRetryPolicy(cfg.MaxRetries, cfg.BaseDelay, logger),
		logger: logger,
	}, nil
}

// Close releases the underlying transport.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Complete sends the prompt and returns the concatenated text parts of
// the first candidate. Failures are classified before the retry policy
// sees them.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.retry.Do(ctx, func(ctx context.Context) (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", classify(err)
		}

		text, err := responseText(resp)
		if err != nil {
			return "", &Error{Kind: KindTransient, Err: err}
		}
		return text, nil
	})
}

// classify maps provider errors to typed kinds. Gemini signals quota
// exhaustion with HTTP 429 or a "quota" marker in the message.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	if strings.Contains(strings.ToLower(err.Error()), "quota") {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	return &Error{Kind: KindTransient, Err: err}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text parts in gemini response")
	}
	return sb.String(), nil
}
