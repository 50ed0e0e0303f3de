// SPDX-License-Identifier: MIT

// Package llm defines the chat-completion capability shared by the relevance
// and generation stages.
package llm

import (
	"context"
	"strings"
)

// Image is an inline attachment for vision-capable backends.
type Image struct {
	MIMEType string // defaults to image/jpeg
	Data     []byte
}

// Request is a single completion call. Backends without image support ignore
// Images; frame references always travel in the prompt text as well.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Images       []Image
	Temperature  float64 // 0 keeps the backend default
	MaxTokens    int     // 0 keeps the model limit
}

// Response carries the completion text and token accounting.
type Response struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// Client is a chat-completion backend.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Provider labels the backend in metrics and traces.
	Provider() string

	// Model names the configured model.
	Model() string
}

// StripCodeFence removes a surrounding markdown code fence (``` or ```json)
// from a model response. Input without a leading fence is returned trimmed
// but otherwise untouched.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	body := trimmed
	idx := strings.IndexByte(body, '\n')
	if idx < 0 {
		// A lone fence line carries no payload.
		return ""
	}
	body = body[idx+1:]

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
