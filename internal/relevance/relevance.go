// SPDX-License-Identifier: MIT

// Package relevance asks an LLM to locate the semantically relevant spans of
// a video. The model must answer with a strict JSON segment list; an
// unparseable answer gets one retry with a stricter instruction, and a failed
// retry degrades to a single moment covering the whole video so downstream
// stages always have coverage.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
)

const (
	analyzeTemperature = 0.1
	analyzeMaxTokens   = 2048

	// maxTranscriptChars bounds the transcript block in the prompt.
	maxTranscriptChars = 24_000

	fallbackReason = "fallback"
)

const schemaExample = `{
  "relevant_segments": [
    {"start": 12.5, "end": 48.0, "reason": "short description", "key_timestamps": [15.0, 30.5]}
  ]
}`

const strictReminder = "Your previous reply was not valid JSON. " +
	"Return STRICTLY the JSON object described above, with no code fences, no commentary and no surrounding text."

// Analyzer runs the moment-selection pass against an LLM backend.
type Analyzer struct {
	client      llm.Client
	mergeGapSec float64
	minSpanSec  float64
	logger      zerolog.Logger
}

// NewAnalyzer wraps an LLM client. Non-positive gap or span values fall back
// to the defaults.
func NewAnalyzer(client llm.Client, mergeGapSec, minSpanSec float64) *Analyzer {
	if mergeGapSec <= 0 {
		mergeGapSec = DefaultMergeGapSec
	}
	if minSpanSec <= 0 {
		minSpanSec = DefaultMinSpanSec
	}
	return &Analyzer{
		client:      client,
		mergeGapSec: mergeGapSec,
		minSpanSec:  minSpanSec,
		logger:      log.WithComponent("relevance"),
	}
}

// Request carries one analysis call.
type Request struct {
	// Record is the moment-selection prompt. Its templates may reference
	// ${keywords} and ${duration}.
	Record prompt.Record

	// ProxyPath is the analysis proxy on disk. Text backends cannot consume
	// it, but it stays part of the call for the trace record.
	ProxyPath string

	Transcript  model.Transcript
	Keywords    []string
	DurationSec float64

	// MergeGapSec and MinSpanSec override the analyzer defaults for this
	// call. Zero keeps the configured values.
	MergeGapSec float64
	MinSpanSec  float64
}

// Result is the normalized analysis outcome.
type Result struct {
	Moments []model.Moment

	// Fallback is set when the single full-video moment was synthesized,
	// either because the model returned no usable moments or because both
	// attempts failed.
	Fallback bool

	// FailureErr is set when both attempts failed. A valid-but-empty
	// response leaves it nil.
	FailureErr error
}

// Analyze sends the prompt, parses the response and normalizes the moments.
// It returns an error only for invalid input or cancellation; analysis
// failures degrade to the full-video moment instead.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	if req.DurationSec <= 0 {
		return Result{}, fmt.Errorf("relevance: duration must be positive, got %.2f", req.DurationSec)
	}

	keywords := keywordsLine(req.Keywords)
	resolved := req.Record.Resolve(map[string]string{
		"keywords": keywords,
		"duration": fmt.Sprintf("%.1f", req.DurationSec),
	})
	system := resolved.SystemText()
	user := buildUserPrompt(req, keywords)

	a.logger.Debug().
		Str("proxy", req.ProxyPath).
		Int("transcript_segments", len(req.Transcript.Segments)).
		Float64("duration_sec", req.DurationSec).
		Msg("selecting moments")

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		promptText := user
		if attempt > 0 {
			promptText += "\n\n" + strictReminder
		}

		resp, err := a.client.Complete(ctx, llm.Request{
			SystemPrompt: system,
			UserPrompt:   promptText,
			Temperature:  analyzeTemperature,
			MaxTokens:    analyzeMaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			lastErr = err
			a.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("moment selection call failed")
			continue
		}

		moments, err := Parse(resp.Content)
		if err != nil {
			lastErr = err
			a.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("moment selection output unparseable")
			continue
		}

		mergeGap, minSpan := a.mergeGapSec, a.minSpanSec
		if req.MergeGapSec > 0 {
			mergeGap = req.MergeGapSec
		}
		if req.MinSpanSec > 0 {
			minSpan = req.MinSpanSec
		}
		normalized := Normalize(moments, req.DurationSec, mergeGap, minSpan)
		if len(normalized) == 0 {
			a.logger.Info().Msg("no usable moments, covering the full span")
			return Result{Moments: []model.Moment{fullSpan(req.DurationSec)}, Fallback: true}, nil
		}
		return Result{Moments: normalized}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	a.logger.Warn().Err(lastErr).Msg("moment selection failed after retry, covering the full span")
	return Result{
		Moments:    []model.Moment{fullSpan(req.DurationSec)},
		Fallback:   true,
		FailureErr: fmt.Errorf("moment selection failed after retry: %w", lastErr),
	}, nil
}

func fullSpan(durationSec float64) model.Moment {
	return model.Moment{StartSec: 0, EndSec: durationSec, Reason: fallbackReason}
}

func buildUserPrompt(req Request, keywords string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video duration: %.1f seconds. Every timestamp must lie within [0.0, %.1f].\n",
		req.DurationSec, req.DurationSec)
	fmt.Fprintf(&b, "Focus keywords: %s.\n\n", keywords)
	b.WriteString("Transcript:\n")
	b.WriteString(renderTranscript(req.Transcript, maxTranscriptChars))
	b.WriteString("\nReturn STRICTLY JSON matching this shape, with no code fences and no commentary:\n")
	b.WriteString(schemaExample)
	return b.String()
}

func keywordsLine(keywords []string) string {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		return "general technical content"
	}
	return strings.Join(kept, ", ")
}

// renderTranscript formats timestamped lines, stopping at the character
// budget so a long recording cannot blow up the prompt.
func renderTranscript(t model.Transcript, maxChars int) string {
	var b strings.Builder
	for _, seg := range t.Segments {
		if seg.Text == "" {
			continue
		}
		line := fmt.Sprintf("[%.1fs - %.1fs] %s\n", seg.StartSec, seg.EndSec, seg.Text)
		if b.Len()+len(line) > maxChars {
			b.WriteString("[transcript truncated]\n")
			break
		}
		b.WriteString(line)
	}
	if b.Len() == 0 {
		return "(no transcript available)\n"
	}
	return b.String()
}
