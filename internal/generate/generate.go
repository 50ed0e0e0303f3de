// SPDX-License-Identifier: MIT

// Package generate runs the documentation pass: it assembles the mode prompt
// with the session facts, attaches keyframes for vision-capable backends and
// validates the model output against the mode's output format. Frames are
// always described in the prompt text as well, so text-only backends can
// still cite them as [Frame N].
package generate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
)

const (
	generateTemperature = 0.4
	generateMaxTokens   = 8192

	// maxTranscriptChars bounds the transcript block in the prompt. The
	// generation pass gets a larger budget than moment selection because the
	// transcript is its primary source material.
	maxTranscriptChars = 48_000
)

// Frame pairs a keyframe record with its image bytes. Data may be empty when
// the caller skips image loading; the textual manifest still references the
// frame.
type Frame struct {
	Keyframe model.Keyframe
	Data     []byte
}

// Generator turns a finished analysis into the final document.
type Generator struct {
	client llm.Client
	logger zerolog.Logger
}

// New wraps an LLM client.
func New(client llm.Client) *Generator {
	return &Generator{client: client, logger: log.WithComponent("generate")}
}

// Request carries one generation call.
type Request struct {
	// Record is the mode prompt. Its templates may reference ${title},
	// ${language}, ${attendees}, ${keywords}, ${duration}, ${segment_count}
	// and ${moment_count}.
	Record prompt.Record

	Title       string
	Language    string
	Attendees   []string
	Keywords    []string
	DurationSec float64

	Transcript model.Transcript
	Moments    []model.Moment
	Frames     []Frame
}

// Generate sends the assembled prompt and validates the reply. Output that
// fails the mode's format contract comes back as an OutputFormatInvalid
// fault; transport failures and cancellation propagate as-is.
func (g *Generator) Generate(ctx context.Context, req Request) (model.Document, error) {
	format := req.Record.OutputFormat
	if format == "" {
		format = prompt.FormatMarkdown
	}

	resolved := req.Record.Resolve(templateVars(req))
	system := resolved.SystemText()
	user := buildUserPrompt(req, format)

	images := make([]llm.Image, 0, len(req.Frames))
	for _, f := range req.Frames {
		if len(f.Data) == 0 {
			continue
		}
		images = append(images, llm.Image{MIMEType: "image/jpeg", Data: f.Data})
	}

	g.logger.Debug().
		Str("mode", req.Record.ID).
		Str("format", format).
		Int("frames", len(req.Frames)).
		Int("frames_with_data", len(images)).
		Int("transcript_segments", len(req.Transcript.Segments)).
		Msg("generating document")

	resp, err := g.client.Complete(ctx, llm.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Images:       images,
		Temperature:  generateTemperature,
		MaxTokens:    generateMaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.Document{}, ctx.Err()
		}
		return model.Document{}, fmt.Errorf("generate: completion: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return model.Document{}, errors.New("generate: empty completion")
	}

	doc, err := finalizeDocument(resp.Content, format, req.Frames)
	if err != nil {
		return model.Document{}, err
	}

	g.logger.Info().
		Str("mode", req.Record.ID).
		Str("format", doc.Format).
		Int("bytes", len(doc.Content)).
		Msg("document generated")
	return doc, nil
}

func templateVars(req Request) map[string]string {
	return map[string]string{
		"title":         req.Title,
		"language":      req.Language,
		"attendees":     strings.Join(req.Attendees, ", "),
		"keywords":      strings.Join(req.Keywords, ", "),
		"duration":      fmt.Sprintf("%.1f", req.DurationSec),
		"segment_count": strconv.Itoa(len(req.Transcript.Segments)),
		"moment_count":  strconv.Itoa(len(req.Moments)),
	}
}

func buildUserPrompt(req Request, format string) string {
	var b strings.Builder
	b.WriteString("# Documentation Request\n\n")
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if req.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", req.Language)
	}
	if len(req.Attendees) > 0 {
		fmt.Fprintf(&b, "Attendees: %s\n", strings.Join(req.Attendees, ", "))
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	fmt.Fprintf(&b, "Video duration: %.1f seconds.\n", req.DurationSec)

	if len(req.Moments) > 0 {
		b.WriteString("\nRelevant moments:\n")
		for _, m := range req.Moments {
			fmt.Fprintf(&b, "- [%.1fs - %.1fs] %s\n", m.StartSec, m.EndSec, m.Reason)
		}
	}

	if len(req.Frames) > 0 {
		b.WriteString("\nKeyframes, cite them as [Frame N]:\n")
		for i, f := range req.Frames {
			fmt.Fprintf(&b, "- Frame %d at %.1fs (%s)\n", i+1, f.Keyframe.TimestampSec, f.Keyframe.Path)
		}
	}

	b.WriteString("\nTranscript:\n")
	b.WriteString(renderTranscript(req.Transcript, maxTranscriptChars))

	b.WriteString("\nPlease analyze the frames")
	if !req.Transcript.Empty() {
		b.WriteString(" and transcript")
	}
	b.WriteString(" and create the documentation according to your instructions.\n")
	if format == prompt.FormatJSON {
		b.WriteString("Return STRICTLY valid JSON with no code fences and no commentary.\n")
	}
	return b.String()
}

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
