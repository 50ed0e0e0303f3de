// SPDX-License-Identifier: MIT

// Package anyllm backs the llm.Client capability with
// github.com/mozilla-ai/any-llm-go, giving one code path for Gemini, Groq,
// OpenAI-compatible and Ollama backends. The unified API is text-only, so
// image attachments are dropped; keyframe references still reach the model
// through the prompt text.
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/telemetry"
)

// Client implements llm.Client on top of an any-llm-go provider backend.
type Client struct {
	backend  anyllmlib.Provider
	provider string
	model    string
	logger   zerolog.Logger
}

// New constructs a backend for the given provider name. providerName is one
// of "gemini", "groq", "openai" or "ollama". Without an explicit
// anyllmlib.WithAPIKey option the backend reads the provider's usual
// environment variable (GEMINI_API_KEY, GROQ_API_KEY, OPENAI_API_KEY);
// Ollama needs no key and defaults to http://localhost:11434.
func New(providerName, model string, opts ...anyllmlib.Option) (*Client, error) {
	if providerName == "" {
		return nil, errors.New("anyllm: provider name must not be empty")
	}
	if model == "" {
		return nil, errors.New("anyllm: model must not be empty")
	}

	name := strings.ToLower(providerName)
	backend, err := createBackend(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", name, err)
	}

	return &Client{
		backend:  backend,
		provider: name,
		model:    model,
		logger:   log.WithComponent("llm.anyllm"),
	}, nil
}

func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch name {
	case "gemini":
		return gemini.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, groq, openai, ollama", name)
	}
}

// Provider implements llm.Client.
func (c *Client) Provider() string { return c.provider }

// Model implements llm.Client.
func (c *Client) Model() string { return c.model }

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Images) > 0 {
		c.logger.Debug().
			Int("images", len(req.Images)).
			Msg("dropping image attachments, backend is text-only")
	}

	params := anyllmlib.CompletionParams{
		Model:    c.model,
		Messages: buildMessages(req),
	}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, errors.New("anyllm: empty choices in response")
	}

	out := llm.Response{Content: resp.Choices[0].Message.ContentString()}
	if resp.Usage != nil {
		out.PromptTokens = int64(resp.Usage.PromptTokens)
		out.CompletionTokens = int64(resp.Usage.CompletionTokens)
	}
	metrics.AddLLMTokens(c.provider, out.PromptTokens, out.CompletionTokens)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.LLMAttributes(
		c.provider, c.model, out.PromptTokens, out.CompletionTokens)...)
	c.logger.Debug().
		Str("provider", c.provider).
		Int64("prompt_tokens", out.PromptTokens).
		Int64("completion_tokens", out.CompletionTokens).
		Msg("completion finished")
	return out, nil
}

func buildMessages(req llm.Request) []anyllmlib.Message {
	messages := make([]anyllmlib.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: req.UserPrompt,
	})
}
