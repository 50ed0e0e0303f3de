// SPDX-License-Identifier: MIT

// Package frames extracts full-resolution keyframes from the original source
// at analyzer-chosen timestamps.
package frames

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/media/ffmpeg"
	"github.com/reeldoc/reeldoc/internal/model"
)

// Extractor grabs stills with ffmpeg, one invocation per frame.
type Extractor struct {
	runner *ffmpeg.Runner
	logger zerolog.Logger
}

// New creates an extractor on the shared ffmpeg runner.
func New(runner *ffmpeg.Runner) *Extractor {
	return &Extractor{
		runner: runner,
		logger: log.WithComponent("frames"),
	}
}

// Available reports whether the underlying binary is resolvable.
func (e *Extractor) Available() error {
	return e.runner.Available()
}

// Extract captures one JPEG per timestamp into framesDir. Filenames encode
// index and timestamp so consumers can reconstruct the instant from the name
// alone. Returned keyframes are in timestamp order with session-relative
// paths. The first failed grab aborts the whole batch.
func (e *Extractor) Extract(ctx context.Context, source, framesDir string, timestamps []float64) ([]model.Keyframe, error) {
	if len(timestamps) == 0 {
		return nil, nil
	}

	keyframes := make([]model.Keyframe, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := artifact.FrameFilename(i, ts)
		args, err := BuildStillArgs(StillSpec{
			Source:       source,
			Output:       filepath.Join(framesDir, name),
			TimestampSec: ts,
		})
		if err != nil {
			return nil, err
		}

		if err := e.runner.Run(ctx, args); err != nil {
			return nil, fmt.Errorf("frame %d at %.2fs: %w", i, ts, err)
		}

		keyframes = append(keyframes, model.Keyframe{
			Index:        i,
			TimestampSec: ts,
			Path:         path.Join(artifact.DirFrames, name),
		})
	}

	e.logger.Debug().
		Int("frames", len(keyframes)).
		Msg("keyframe extraction complete")
	return keyframes, nil
}
