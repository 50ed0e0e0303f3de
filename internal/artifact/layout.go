// SPDX-License-Identifier: MIT

package artifact

import (
	"fmt"
	"path"
	"strings"
)

// Logical artifact names within a session directory.
const (
	FileProxy         = "proxy.mp4"
	FileAudio         = "audio.wav"
	FileTranscript    = "transcript.json"
	FileTranscriptSRT = "transcript.srt"
	FileMoments       = "moments.json"
	FileDocMarkdown   = "doc.md"
	FileDocJSON       = "doc.json"
	FileSession       = "session.json"
	FileTrace         = "trace.jsonl"

	DirFrames = "frames"
)

// SourceName returns the stored source filename for the given extension.
// The extension may be passed with or without the leading dot; empty or
// unusable extensions fall back to ".bin".
func SourceName(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		ext = "bin"
	}
	return "source." + ext
}

// DocName returns the document filename for an output format.
func DocName(format string) string {
	if format == "json" {
		return FileDocJSON
	}
	return FileDocMarkdown
}

// FramePath returns the session-relative path of the n-th keyframe captured
// at the given timestamp.
func FramePath(n int, tsSec float64) string {
	return path.Join(DirFrames, FrameFilename(n, tsSec))
}

// FrameFilename builds the canonical keyframe filename. The timestamp is
// rendered with centisecond precision so ParseFrameFilename reverses it to
// within 10ms.
func FrameFilename(n int, tsSec float64) string {
	return fmt.Sprintf("frame_%d_t%.2fs.jpg", n, tsSec)
}

// ParseFrameFilename extracts the frame index and timestamp from a filename
// produced by FrameFilename.
func ParseFrameFilename(name string) (n int, tsSec float64, err error) {
	base := path.Base(name)
	if _, err := fmt.Sscanf(base, "frame_%d_t%fs.jpg", &n, &tsSec); err != nil {
		return 0, 0, fmt.Errorf("unrecognized frame filename: %q", name)
	}
	if !strings.HasSuffix(base, "s.jpg") {
		return 0, 0, fmt.Errorf("unrecognized frame filename: %q", name)
	}
	return n, tsSec, nil
}
