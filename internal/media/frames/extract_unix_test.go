// SPDX-License-Identifier: MIT

//go:build unix && !windows

package frames

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/media/ffmpeg"
)

// writeStubFFmpeg creates a script that appends its argv and touches the
// last argument as its output file.
func writeStubFFmpeg(t *testing.T) (bin, argvFile string) {
	t.Helper()
	dir := t.TempDir()
	argvFile = filepath.Join(dir, "argv.txt")
	bin = filepath.Join(dir, "ffmpeg-stub")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" >> " + argvFile + "\n" +
		"for last; do :; done\ntouch \"$last\"\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o700)) // #nosec G306 -- executable test stub
	return bin, argvFile
}

func TestExtractor_CapturesEachTimestamp(t *testing.T) {
	bin, argvFile := writeStubFFmpeg(t)
	framesDir := t.TempDir()
	ex := New(ffmpeg.NewRunner(bin))

	kf, err := ex.Extract(context.Background(), "/videos/demo.mp4", framesDir, []float64{1.5, 2.25})
	require.NoError(t, err)

	require.Len(t, kf, 2)
	assert.Equal(t, 0, kf[0].Index)
	assert.InDelta(t, 1.5, kf[0].TimestampSec, 0.001)
	assert.Equal(t, "frames/frame_0_t1.50s.jpg", kf[0].Path)
	assert.Equal(t, "frames/frame_1_t2.25s.jpg", kf[1].Path)

	assert.FileExists(t, filepath.Join(framesDir, "frame_0_t1.50s.jpg"))
	assert.FileExists(t, filepath.Join(framesDir, "frame_1_t2.25s.jpg"))

	argv, err := os.ReadFile(argvFile)
	require.NoError(t, err)
	assert.Contains(t, string(argv), "-ss\n1.500")
	assert.Contains(t, string(argv), "-ss\n2.250")
}

func TestExtractor_EmptyTimestamps(t *testing.T) {
	bin, _ := writeStubFFmpeg(t)
	ex := New(ffmpeg.NewRunner(bin))

	kf, err := ex.Extract(context.Background(), "/videos/demo.mp4", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Nil(t, kf)
}

func TestExtractor_FailureAbortsBatch(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "failing-ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'decode error' >&2\nexit 1\n"), 0o700)) // #nosec G306 -- executable test stub

	ex := New(ffmpeg.NewRunner(bin))
	_, err := ex.Extract(context.Background(), "in.mp4", dir, []float64{3.5})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame 0 at 3.50s")
	assert.Contains(t, err.Error(), "decode error")
}

func TestExtractor_CancelledContext(t *testing.T) {
	bin, _ := writeStubFFmpeg(t)
	ex := New(ffmpeg.NewRunner(bin))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Extract(ctx, "in.mp4", t.TempDir(), []float64{1})
	require.ErrorIs(t, err, context.Canceled)
}
