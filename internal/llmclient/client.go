// Package llmclient wraps the chat-completions endpoint behind the narrow
// interface the dispatch loop consumes. Any OpenAI-compatible server works;
// the base URL comes from the active connection profile.
package llmclient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"deskpilot/internal/agent"
	"deskpilot/internal/config"
)

// ErrEmptyReply is returned when the server answers 200 with no choices.
var ErrEmptyReply = errors.New("model returned no choices")

// Client is a thin chat-completions client bound to one profile.
type Client struct {
	api       openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// New builds a client from a connection profile. The profile URL may point at
// the API root or directly at /chat/completions; both are accepted.
func New(profile config.Profile, cfg config.AgentConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(profile.APIKey),
			option.WithBaseURL(normalizeBaseURL(profile.URL)),
			// The loop has its own failure handling; a failed call ends the
			// run rather than being retried.
			option.WithMaxRetries(0),
		),
		model:     profile.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger.Named("llm"),
	}
}

// normalizeBaseURL strips a trailing /chat/completions so pasted endpoint
// URLs from provider dashboards keep working.
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u + "/"
}

// Complete sends the conversation and returns the raw reply text. When
// imageB64 is non-empty it is attached to the final message as an inline PNG.
func (c *Client) Complete(ctx context.Context, msgs []agent.Message, imageB64 string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    c.convert(msgs, imageB64),
		Temperature: openai.Opt[float64](0),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	started := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithRequestTimeout(c.timeout))
	if err != nil {
		c.logger.Warn("chat completion failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := resp.Choices[0].Message.Content
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("reply_chars", len(reply)),
	)
	return reply, nil
}

func (c *Client) convert(msgs []agent.Message, imageB64 string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for i, m := range msgs {
		last := i == len(msgs)-1
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case agent.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if last && imageB64 != "" {
				out = append(out, openai.UserMessage(
					[]openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(m.Content),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL: "data:image/png;base64," + imageB64,
						}),
					},
				))
				continue
			}
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
