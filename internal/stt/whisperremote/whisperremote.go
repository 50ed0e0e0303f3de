// SPDX-License-Identifier: MIT

// Package whisperremote transcribes audio through an OpenAI-compatible
// /audio/transcriptions endpoint.
package whisperremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/model"
)

// Name is the adapter identifier recorded in session results.
const Name = "remote"

// DefaultModel is the transcription model requested when none is configured.
const DefaultModel = "whisper-1"

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	transcribePath    = "/audio/transcriptions"
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 2
	retryBaseDelay    = 500 * time.Millisecond
	maxResponseBytes  = 8 << 20
)

// Client calls the remote transcription API with bounded retries on rate
// limits and server errors.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	maxRetries int
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithModel selects the transcription model.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithMaxRetries bounds retry attempts after the first request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// NewClient builds a remote transcriber. Outbound requests carry trace
// propagation headers via otelhttp.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: defaultMaxRetries,
		logger:     log.WithComponent("stt.remote"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements stt.Transcriber.
func (c *Client) Name() string { return Name }

// Available reports whether the client is configured. Self-hosted
// OpenAI-compatible servers often run without auth, so a custom base URL
// counts as configured even without an API key.
func (c *Client) Available() bool {
	return c.apiKey != "" || c.baseURL != defaultBaseURL
}

// Transcribe uploads the audio file and maps the verbose_json response to
// transcript segments. 429 and 5xx responses are retried with backoff;
// other failures surface immediately.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (model.Transcript, error) {
	audio, err := os.ReadFile(audioPath) // #nosec G304 -- path is a pipeline-owned artifact
	if err != nil {
		return model.Transcript{}, fmt.Errorf("read audio: %w", err)
	}

	body, contentType, err := c.buildForm(audio, filepath.Base(audioPath), language)
	if err != nil {
		return model.Transcript{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			if err := sleepCtx(ctx, delay); err != nil {
				return model.Transcript{}, err
			}
			c.logger.Debug().Int("attempt", attempt+1).Msg("retrying transcription request")
		}

		tr, retryable, err := c.doRequest(ctx, body, contentType)
		if err == nil {
			return tr, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return model.Transcript{}, err
		}
	}
	return model.Transcript{}, lastErr
}

func (c *Client) doRequest(ctx context.Context, body []byte, contentType string) (model.Transcript, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, bytes.NewReader(body))
	if err != nil {
		return model.Transcript{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Transcript{}, true, fmt.Errorf("transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.Transcript{}, true, fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return model.Transcript{}, retryable,
			fmt.Errorf("transcription failed: status %d: %s", resp.StatusCode, apiErrorMessage(respBody))
	}

	tr, err := parseVerboseJSON(respBody)
	if err != nil {
		return model.Transcript{}, false, err
	}
	return tr, false, nil
}

func (c *Client) buildForm(audio []byte, filename, language string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio form part: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	// verbose_json carries per-segment timings that plain json drops.
	if err := w.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("write response_format field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type verboseResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func parseVerboseJSON(data []byte) (model.Transcript, error) {
	var resp verboseResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.Transcript{}, fmt.Errorf("parse transcription response: %w", err)
	}

	tr := model.Transcript{Language: resp.Language}
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		tr.Segments = append(tr.Segments, model.TranscriptSegment{
			StartSec: s.Start,
			EndSec:   s.End,
			Text:     text,
		})
	}

	// Some servers omit segment timings; keep the text as one span.
	if len(tr.Segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		end := resp.Duration
		if end <= 0 {
			end = 0.1
		}
		tr.Segments = append(tr.Segments, model.TranscriptSegment{
			StartSec: 0,
			EndSec:   end,
			Text:     strings.TrimSpace(resp.Text),
		})
	}
	return tr, nil
}

func apiErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty error body"
	}
	return msg
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
