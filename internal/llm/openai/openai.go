// SPDX-License-Identifier: MIT

// Package openai backs the llm.Client capability with the official OpenAI
// SDK. Keyframes are attached as data-URL image parts, so vision models see
// the actual frames.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/telemetry"
)

// Client implements llm.Client against the OpenAI chat completions API.
type Client struct {
	client oai.Client
	model  string
	logger zerolog.Logger
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option configures the client.
type Option func(*config)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs the backend.
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Client{
		client: oai.NewClient(reqOpts...),
		model:  model,
		logger: log.WithComponent("llm.openai"),
	}, nil
}

// Provider implements llm.Client.
func (c *Client) Provider() string { return "openai" }

// Model implements llm.Client.
func (c *Client) Model() string { return c.model }

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: buildMessages(req),
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, errors.New("openai: empty choices in response")
	}

	out := llm.Response{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	metrics.AddLLMTokens("openai", out.PromptTokens, out.CompletionTokens)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.LLMAttributes(
		"openai", c.model, out.PromptTokens, out.CompletionTokens)...)
	c.logger.Debug().
		Int64("prompt_tokens", out.PromptTokens).
		Int64("completion_tokens", out.CompletionTokens).
		Msg("completion finished")
	return out, nil
}

func buildMessages(req llm.Request) []oai.ChatCompletionMessageParamUnion {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}

	if len(req.Images) == 0 {
		return append(messages, oai.UserMessage(req.UserPrompt))
	}

	parts := make([]oai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, oai.TextContentPart(req.UserPrompt))
	for _, img := range req.Images {
		parts = append(parts, oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(img),
		}))
	}
	return append(messages, oai.UserMessage(parts))
}

func dataURL(img llm.Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data))
}
