// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the Anthropic Messages API for per-record analysis,
// landscape summaries, and keyword suggestions. Every model call goes
// through a Breaker so that one rate-limit response stops further calls
// for the life of the process.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Messager is the subset of the Anthropic client the package uses.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// MessagerCreator builds a Messager for an API key.
type MessagerCreator func(apiKey string) Messager

func defaultMessagerCreator(apiKey string) Messager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newMessager MessagerCreator = defaultMessagerCreator

// defaultMaxTokens applies when the configuration leaves max_tokens unset.
const defaultMaxTokens = 4000

// Client sends single-turn prompts to one model.
type Client struct {
	messages  Messager
	model     string
	maxTokens int64
}

// NewClient returns a client for cfg. It fails with a configuration error
// when no API key is set; callers then run on the local fallbacks only.
func NewClient(cfg types.AIConfig) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, types.ConfigError("ai.api_key is not set")
	}
	if cfg.Model == "" {
		return nil, types.ConfigError("ai.model is not set")
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{messages: newMessager(key), model: cfg.Model, maxTokens: maxTokens}, nil
}

// NewClientWith builds a client around an existing Messager.
func NewClientWith(m Messager, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{messages: m, model: model, maxTokens: int64(maxTokens)}
}

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends system and prompt as a single user turn and returns the
// concatenated text blocks of the reply. maxTokens <= 0 uses the client
// default. Rate-limit failures are returned as KindSummarizerRateLimited.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	limit := c.maxTokens
	if maxTokens > 0 {
		limit = int64(maxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   limit,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.3),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		if IsRateLimited(err) {
			return "", types.RateLimited("messages", err)
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response from anthropic")
	}
	return text, nil
}

// rateLimitMarkers are lower-case substrings that identify a rate-limit or
// quota failure in an error message.
var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
}

// statusTooMany matches a 429 that is labeled as a status code, so digits
// inside request ids, ports or byte counts do not count.
var statusTooMany = regexp.MustCompile(`\b(?:http|status|status code|code)[\s:=]*429\b`)

// IsRateLimited reports whether err signals a rate limit or exhausted
// quota, either as an HTTP 429 from the API or by its message text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrSummarizerRateLimited) {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	if statusTooMany.MatchString(msg) {
		return true
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
