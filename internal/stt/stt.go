// SPDX-License-Identifier: MIT

// Package stt defines the speech-to-text capability and the adapter
// selection policy that arbitrates between the fast local transcriber and
// the accurate remote one.
package stt

import (
	"context"

	"github.com/reeldoc/reeldoc/internal/model"
)

// Adapter preference values accepted per session.
const (
	PreferenceAuto     = "auto"
	PreferenceFast     = "fast"
	PreferenceAccurate = "accurate"
)

// ValidPreference reports whether p is a known adapter preference.
func ValidPreference(p string) bool {
	switch p {
	case PreferenceAuto, PreferenceFast, PreferenceAccurate:
		return true
	}
	return false
}

// Transcriber converts an extracted audio track into transcript segments.
// Implementations may return raw, unordered segments; callers run Normalize
// before trusting segment order.
type Transcriber interface {
	// Transcribe processes the audio file at audioPath. language is a hint
	// and may be empty. Implementations must honor ctx cancellation within
	// the adapter grace window.
	Transcribe(ctx context.Context, audioPath, language string) (model.Transcript, error)

	// Available reports adapter health. The first call may perform a lazy
	// self-test; subsequent calls must be cheap.
	Available() bool

	// Name identifies the adapter in session records and traces.
	Name() string
}
