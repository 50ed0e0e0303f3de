// SPDX-License-Identifier: MIT

package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/model"
)

// DefaultAutoLocalMaxSec is the audio duration up to which the auto policy
// prefers the local adapter.
const DefaultAutoLocalMaxSec = 300

// Outcome reports how a transcript was obtained.
type Outcome struct {
	// Transcript carries the normalized segments; AdapterUsed names the
	// adapter that produced them.
	Transcript model.Transcript

	// FellBack is true when the first-choice adapter did not produce the
	// transcript. PrimaryErr holds its failure.
	FellBack   bool
	PrimaryErr error
}

// Selector picks between the local and remote transcriber per session
// preference and falls back to the other on failure.
type Selector struct {
	local           Transcriber
	remote          Transcriber
	autoLocalMaxSec float64
	logger          zerolog.Logger
}

// NewSelector builds a selector over the configured adapters. Either adapter
// may be nil when not configured. autoLocalMaxSec <= 0 applies the default.
func NewSelector(local, remote Transcriber, autoLocalMaxSec float64) *Selector {
	if autoLocalMaxSec <= 0 {
		autoLocalMaxSec = DefaultAutoLocalMaxSec
	}
	return &Selector{
		local:           local,
		remote:          remote,
		autoLocalMaxSec: autoLocalMaxSec,
		logger:          log.WithComponent("stt"),
	}
}

// Transcribe runs the preferred adapter and falls back to the alternative
// when the first fails or reports itself unavailable. An error is returned
// only when every configured adapter failed; interpreting that as fatal or
// as an empty transcript is the caller's policy.
func (s *Selector) Transcribe(ctx context.Context, audioPath, language, preference string, durationSec float64) (Outcome, error) {
	adapters := s.order(preference, durationSec)
	if len(adapters) == 0 {
		return Outcome{}, errors.New("no transcriber configured")
	}

	var out Outcome
	var errs []error
	for i, a := range adapters {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		tr, err := s.tryAdapter(ctx, a, audioPath, language)
		if err != nil {
			// Cancellation is not a quality problem the fallback can fix.
			if ctx.Err() != nil {
				return out, err
			}
			if i == 0 {
				out.PrimaryErr = err
			}
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
			s.logger.Warn().Err(err).Str("adapter", a.Name()).Msg("transcriber failed")
			continue
		}

		tr.Segments = Normalize(tr.Segments)
		tr.AdapterUsed = a.Name()
		out.Transcript = tr
		if i > 0 {
			out.FellBack = true
			metrics.IncSTTFallback(adapters[0].Name(), a.Name())
			s.logger.Info().
				Str("from", adapters[0].Name()).
				Str("to", a.Name()).
				Msg("stt fallback engaged")
		}
		return out, nil
	}

	return out, fmt.Errorf("all transcribers failed: %w", errors.Join(errs...))
}

func (s *Selector) tryAdapter(ctx context.Context, a Transcriber, audioPath, language string) (model.Transcript, error) {
	if !a.Available() {
		return model.Transcript{}, fmt.Errorf("%s transcriber unavailable", a.Name())
	}
	return a.Transcribe(ctx, audioPath, language)
}

// order returns the adapters to try, first choice first, nil slots dropped.
func (s *Selector) order(preference string, durationSec float64) []Transcriber {
	var first, second Transcriber
	switch preference {
	case PreferenceFast:
		first, second = s.local, s.remote
	case PreferenceAccurate:
		first, second = s.remote, s.local
	default:
		// Short audio is cheap to run locally; long audio goes remote
		// unless the local adapter is loaded and healthy.
		if durationSec <= s.autoLocalMaxSec || (s.local != nil && s.local.Available()) {
			first, second = s.local, s.remote
		} else {
			first, second = s.remote, s.local
		}
	}

	adapters := make([]Transcriber, 0, 2)
	if first != nil {
		adapters = append(adapters, first)
	}
	if second != nil {
		adapters = append(adapters, second)
	}
	return adapters
}
