// SPDX-License-Identifier: MIT

// Package probe inspects media files with ffprobe. Its JSON output carries
// numerics as strings; parsing normalizes them into MediaInfo.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
)

// MediaInfo is the normalized probe result for one source file.
type MediaInfo struct {
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	HasVideo    bool    `json:"has_video"`
	HasAudio    bool    `json:"has_audio"`
	VideoCodec  string  `json:"video_codec,omitempty"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	Container   string  `json:"container,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
}

// Prober runs ffprobe against local files.
type Prober struct {
	bin    string
	logger zerolog.Logger
}

// NewProber creates a prober for the given binary path ("ffprobe" when empty).
func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{
		bin:    bin,
		logger: log.WithComponent("probe"),
	}
}

// Available verifies the binary can be resolved on PATH.
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.bin); err != nil {
		return fmt.Errorf("ffprobe binary not found: %w", err)
	}
	return nil
}

// Probe inspects the file at path. The caller owns the timeout via ctx.
func (p *Prober) Probe(ctx context.Context, path string) (MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.bin, args...) // #nosec G204 -- fixed args, path is a vetted local file
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return MediaInfo{}, ctx.Err()
		}
		return MediaInfo{}, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe output for %s: %w", path, err)
	}

	p.logger.Debug().
		Float64(log.FieldDuration, info.DurationSec).
		Str(log.FieldCodec, info.VideoCodec).
		Bool("has_audio", info.HasAudio).
		Msg("probe complete")
	return info, nil
}

// ffprobe emits all numerics as strings ("310.666667").
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("parse json: %w", err)
	}

	info := MediaInfo{
		Container: out.Format.FormatName,
	}

	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("invalid duration %q", out.Format.Duration)
		}
		info.DurationSec = d
	}

	if out.Format.Size != "" {
		if size, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
			info.SizeBytes = size
		}
	}

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			// Attached cover art also reports as video; prefer real streams.
			if info.HasVideo && stream.Width == 0 {
				continue
			}
			info.HasVideo = true
			info.VideoCodec = stream.CodecName
			if stream.Width > 0 {
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}

		// Some containers only carry duration on the streams.
		if info.DurationSec == 0 && stream.Duration != "" {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil && d > info.DurationSec {
				info.DurationSec = d
			}
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return MediaInfo{}, fmt.Errorf("no usable streams (container %q)", info.Container)
	}
	if info.DurationSec <= 0 {
		return MediaInfo{}, fmt.Errorf("source has no duration")
	}

	return info, nil
}

// PrimaryExt guesses a file extension from the container name for storing
// the source copy. ffprobe reports comma-separated alternatives.
func (m MediaInfo) PrimaryExt() string {
	first := m.Container
	if i := strings.IndexByte(first, ','); i >= 0 {
		first = first[:i]
	}
	switch first {
	case "mov", "mp4", "m4a":
		return "mp4"
	case "matroska":
		return "mkv"
	case "webm":
		return "webm"
	case "avi":
		return "avi"
	case "mpegts":
		return "ts"
	case "":
		return "bin"
	default:
		return first
	}
}
