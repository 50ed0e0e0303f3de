// SPDX-License-Identifier: MIT

package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
)

// maxDocBytes caps the persisted document. Model output is far smaller in
// practice; the cap guards against a runaway reply.
const maxDocBytes = 2 << 20

var frameRefPattern = regexp.MustCompile(`\[Frame (\d+)\]`)

// finalizeDocument normalizes and validates model output for the mode's
// format. Markdown gets frame references rewritten into image links; JSON
// must parse after fence stripping.
func finalizeDocument(content, format string, frames []Frame) (model.Document, error) {
	body := llm.StripCodeFence(content)

	if len(body) > maxDocBytes {
		return model.Document{}, fault.Newf(fault.OutputFormatInvalid, "generate",
			"document is %d bytes, cap is %d", len(body), maxDocBytes)
	}
	if !utf8.ValidString(body) {
		return model.Document{}, fault.New(fault.OutputFormatInvalid, "generate",
			"document is not valid UTF-8", nil)
	}

	switch format {
	case prompt.FormatJSON:
		if !json.Valid([]byte(body)) {
			return model.Document{}, fault.New(fault.OutputFormatInvalid, "generate",
				"document is not valid JSON", nil)
		}
	case prompt.FormatMarkdown:
		body = embedFrameLinks(body, frames)
	default:
		return model.Document{}, fmt.Errorf("generate: unknown output format %q", format)
	}

	return model.Document{Format: format, Content: []byte(body)}, nil
}

// embedFrameLinks rewrites [Frame N] citations into markdown image links
// pointing at the session-relative frame path. Unknown frame numbers are
// left untouched.
func embedFrameLinks(body string, frames []Frame) string {
	if len(frames) == 0 {
		return body
	}
	return frameRefPattern.ReplaceAllStringFunc(body, func(ref string) string {
		m := frameRefPattern.FindStringSubmatch(ref)
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(frames) {
			return ref
		}
		return fmt.Sprintf("![Frame %d](%s)", n, frames[n-1].Keyframe.Path)
	})
}
