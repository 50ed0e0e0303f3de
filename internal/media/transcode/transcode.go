// SPDX-License-Identifier: MIT

// Package transcode builds analysis proxies and STT audio tracks with ffmpeg.
package transcode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/media/ffmpeg"
)

// Transcoder wraps an ffmpeg runner with the pipeline's proxy settings.
type Transcoder struct {
	runner     *ffmpeg.Runner
	fps        int
	longEdgePx int
	logger     zerolog.Logger
}

// New creates a transcoder. fps and longEdgePx fall back to 1 and 640.
func New(runner *ffmpeg.Runner, fps, longEdgePx int) *Transcoder {
	if fps <= 0 {
		fps = 1
	}
	if longEdgePx <= 0 {
		longEdgePx = 640
	}
	return &Transcoder{
		runner:     runner,
		fps:        fps,
		longEdgePx: longEdgePx,
		logger:     log.WithComponent("transcode"),
	}
}

// Available reports whether the underlying binary is resolvable.
func (t *Transcoder) Available() error {
	return t.runner.Available()
}

// BuildProxy re-encodes source into a low-fps capped proxy at output. The
// probed dimensions pick which edge the cap applies to.
func (t *Transcoder) BuildProxy(ctx context.Context, source, output string, width, height int) error {
	args, err := BuildProxyArgs(ProxySpec{
		Source:     source,
		Output:     output,
		FPS:        t.fps,
		LongEdgePx: t.longEdgePx,
		Portrait:   height > width,
	})
	if err != nil {
		return err
	}

	t.logger.Debug().
		Str(log.FieldPath, output).
		Int("fps", t.fps).
		Int("long_edge_px", t.longEdgePx).
		Bool("portrait", height > width).
		Msg("building proxy")

	if err := t.runner.Run(ctx, args); err != nil {
		return fmt.Errorf("proxy build: %w", err)
	}
	return nil
}

// ExtractAudio writes the 16 kHz mono WAV track for STT.
func (t *Transcoder) ExtractAudio(ctx context.Context, source, output string) error {
	args, err := BuildAudioArgs(AudioSpec{
		Source: source,
		Output: output,
	})
	if err != nil {
		return err
	}

	t.logger.Debug().
		Str(log.FieldPath, output).
		Msg("extracting audio track")

	if err := t.runner.Run(ctx, args); err != nil {
		return fmt.Errorf("audio extraction: %w", err)
	}
	return nil
}
