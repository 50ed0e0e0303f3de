// SPDX-License-Identifier: MIT

package relevance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/model"
)

type analysisPayload struct {
	RelevantSegments []analysisSegment `json:"relevant_segments"`
}

type analysisSegment struct {
	Start         float64   `json:"start"`
	End           float64   `json:"end"`
	Reason        string    `json:"reason"`
	KeyTimestamps []float64 `json:"key_timestamps"`
}

// Parse decodes a model response into raw moments. The response may be
// wrapped in a code fence; any other text around the JSON object is an
// error. A payload without relevant_segments parses as no moments.
func Parse(raw string) ([]model.Moment, error) {
	stripped := llm.StripCodeFence(raw)
	if stripped == "" {
		return nil, errors.New("empty response")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(stripped), &payload); err != nil {
		return nil, fmt.Errorf("parse moments: %w", err)
	}

	moments := make([]model.Moment, 0, len(payload.RelevantSegments))
	for _, seg := range payload.RelevantSegments {
		moments = append(moments, model.Moment{
			StartSec:      seg.Start,
			EndSec:        seg.End,
			Reason:        strings.TrimSpace(seg.Reason),
			KeyTimestamps: seg.KeyTimestamps,
		})
	}
	return moments, nil
}
