// SPDX-License-Identifier: MIT

package transcode

import (
	"fmt"
	"strconv"
)

// ProxySpec defines one proxy build: a low-fps, capped-resolution re-encode
// used only for cheap analysis.
type ProxySpec struct {
	Source     string // input media path
	Output     string // proxy .mp4 target
	FPS        int    // analysis frame rate, default 1
	LongEdgePx int    // cap for the longer edge, default 640
	Portrait   bool   // source height exceeds width
}

// AudioSpec defines one audio extraction: STT wants 16 kHz mono PCM WAV.
type AudioSpec struct {
	Source     string
	Output     string // .wav target
	SampleRate int    // default 16000
}

// BuildProxyArgs constructs the ffmpeg arguments for a proxy build. No shell
// is involved, so paths pass through verbatim.
func BuildProxyArgs(spec ProxySpec) ([]string, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("missing proxy source path")
	}
	if spec.Output == "" {
		return nil, fmt.Errorf("missing proxy output path")
	}
	fps := spec.FPS
	if fps <= 0 {
		fps = 1
	}
	longEdge := spec.LongEdgePx
	if longEdge <= 0 {
		longEdge = 640
	}
	// -2 keeps the other edge even, which libx264 requires.
	scale := "scale=" + strconv.Itoa(longEdge) + ":-2"
	if spec.Portrait {
		scale = "scale=-2:" + strconv.Itoa(longEdge)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error", // stderr tail is captured by the runner
		"-y",

		"-i", spec.Source,

		"-vf", "fps=" + strconv.Itoa(fps) + "," + scale,

		// Cheap-to-decode H.264; quality does not matter for analysis.
		"-c:v", "libx264",
		"-crf", "28",
		"-preset", "veryfast",

		// The proxy is silent; audio travels separately as WAV.
		"-an",

		"-movflags", "+faststart",

		spec.Output,
	}
	return args, nil
}

// BuildAudioArgs constructs the ffmpeg arguments for the STT audio track.
func BuildAudioArgs(spec AudioSpec) ([]string, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("missing audio source path")
	}
	if spec.Output == "" {
		return nil, fmt.Errorf("missing audio output path")
	}
	rate := spec.SampleRate
	if rate <= 0 {
		rate = 16000
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",

		"-i", spec.Source,

		"-vn",

		// Whisper-family models expect 16 kHz mono s16le PCM.
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", "1",

		spec.Output,
	}
	return args, nil
}
