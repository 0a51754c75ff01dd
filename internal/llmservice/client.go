package llmservice

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"contract-review/internal/config"
)

var ErrEmptyResponse = errors.New("llmservice: empty response")

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	llm *openai.LLM
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, cfg: cfg}, nil
}

// Generate runs one synchronous completion. The caller owns retry and
// timeout policy through ctx.
func (c *Client) Generate(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	log.Debug().Str("model", c.cfg.Model).Int("prompt_chars", len(prompt)).Msg("generating content")

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// IsRetryable classifies a generation error as transient (rate limit,
// server error, flaky network, per-call timeout) or permanent.
// Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"status code: 429",
		"status code: 5",
		"rate limit",
		"too many requests",
		"temporarily unavailable",
		"connection refused",
		"connection reset",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
