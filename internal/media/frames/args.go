// SPDX-License-Identifier: MIT

package frames

import (
	"fmt"
	"strconv"
)

// StillSpec defines one keyframe grab from the original source.
type StillSpec struct {
	Source       string
	Output       string // .jpg target
	TimestampSec float64
}

// BuildStillArgs constructs the ffmpeg arguments for a single still.
// -ss before -i seeks on the demuxer, which is what makes per-frame grabs
// affordable on long sources.
func BuildStillArgs(spec StillSpec) ([]string, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("missing still source path")
	}
	if spec.Output == "" {
		return nil, fmt.Errorf("missing still output path")
	}
	if spec.TimestampSec < 0 {
		return nil, fmt.Errorf("negative still timestamp: %f", spec.TimestampSec)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",

		"-ss", strconv.FormatFloat(spec.TimestampSec, 'f', 3, 64),
		"-i", spec.Source,

		"-frames:v", "1",
		"-q:v", "2", // high-quality JPEG

		spec.Output,
	}
	return args, nil
}
