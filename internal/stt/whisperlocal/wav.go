// SPDX-License-Identifier: MIT

package whisperlocal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ReadWAVMono loads a 16-bit PCM RIFF/WAVE file as normalized float32
// samples, down-mixing multi-channel audio by averaging.
func ReadWAVMono(path string) ([]float32, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is a pipeline-owned artifact
	if err != nil {
		return nil, err
	}
	return DecodeWAVMono(data)
}

// DecodeWAVMono parses the RIFF container and converts the data chunk. Only
// 16-bit integer PCM is accepted; that is what the audio extraction stage
// produces.
func DecodeWAVMono(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	channels := 0
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		body := data[off : off+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			bits := int(binary.LittleEndian.Uint16(body[14:16]))
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav format %d, want PCM", format)
			}
			if bits != 16 {
				return nil, fmt.Errorf("unsupported bit depth %d, want 16", bits)
			}
			if channels < 1 {
				return nil, errors.New("wav reports zero channels")
			}
		case "data":
			if channels == 0 {
				return nil, errors.New("wav data chunk precedes fmt chunk")
			}
			return pcmToFloat32Mono(body, channels), nil
		}

		off += size
		if size%2 == 1 {
			off++ // chunks are word aligned
		}
	}
	return nil, errors.New("wav has no data chunk")
}

// pcmToFloat32Mono converts 16-bit little-endian PCM to float32 in [-1, 1],
// averaging all channels per frame.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		n := len(pcm) / 2
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:i*2+2]))) / 32768.0
		}
		return samples
	}

	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			idx := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:idx+2]))) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
