// SPDX-License-Identifier: MIT

// Package fault defines the closed failure taxonomy shared by the pipeline,
// the session manager and the CLI. Adapters translate foreign errors into a
// Kind at their boundary; everything in between wraps with %w.
package fault

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Kind is the closed set of failure classes surfaced to callers.
type Kind string

const (
	KindNone Kind = ""

	InputInvalid             Kind = "input_invalid"
	InputTooLarge            Kind = "input_too_large"
	PreprocessingFailed      Kind = "preprocessing_failed"
	TranscriptionRequired    Kind = "transcription_required"
	TranscriptionUnavailable Kind = "transcription_unavailable"
	RelevanceUnavailable     Kind = "relevance_unavailable"
	FrameExtractionFailed    Kind = "frame_extraction_failed"
	OutputFormatInvalid      Kind = "output_format_invalid"
	StageTimeout             Kind = "stage_timeout"
	Cancelled                Kind = "cancelled"
	StaleTimeout             Kind = "stale_timeout"
	Internal                 Kind = "internal"
)

// Valid reports whether k names a known failure class.
func (k Kind) Valid() bool {
	switch k {
	case InputInvalid, InputTooLarge, PreprocessingFailed,
		TranscriptionRequired, TranscriptionUnavailable, RelevanceUnavailable,
		FrameExtractionFailed, OutputFormatInvalid, StageTimeout,
		Cancelled, StaleTimeout, Internal:
		return true
	}
	return false
}

// Terminal CLI exit codes per failure class.
const (
	ExitOK            = 0
	ExitInputInvalid  = 2
	ExitPipelineError = 3
	ExitCancelled     = 4
	ExitTimeout       = 5
)

type faultError struct {
	kind   Kind
	stage  string
	detail string
	err    error
}

func (e *faultError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.detail != "" {
		return e.detail
	}
	return string(e.kind)
}

func (e *faultError) Unwrap() error {
	return e.err
}

// New builds a classified error. stage may be empty when the failure is not
// attributable to a pipeline stage.
func New(kind Kind, stage, detail string, err error) error {
	return &faultError{
		kind:   kind,
		stage:  stage,
		detail: sanitizeDetail(detail),
		err:    err,
	}
}

// Newf builds a classified error with a formatted detail and no cause.
func Newf(kind Kind, stage, format string, args ...any) error {
	return New(kind, stage, fmt.Sprintf(format, args...), nil)
}

// Wrap classifies err for the given stage. Already-classified errors pass
// through untouched; ctx cancellation and deadline errors map to their
// canonical kinds; anything else gets the fallback kind.
func Wrap(err error, stage string, fallback Kind) error {
	if err == nil {
		return nil
	}
	var ferr *faultError
	if errors.As(err, &ferr) {
		return err
	}
	kind, detail := classify(err)
	if kind == KindNone {
		kind = fallback
	}
	return New(kind, stage, detail, err)
}

func classify(err error) (Kind, string) {
	if errors.Is(err, context.Canceled) {
		return Cancelled, ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StageTimeout, ""
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return KindNone, fmt.Sprintf("process exit code %d", exitErr.ExitCode())
	}
	return KindNone, sanitizeDetail(err.Error())
}

// KindOf returns the failure class of err. nil maps to KindNone, an
// unclassified error to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ferr *faultError
	if errors.As(err, &ferr) {
		return ferr.kind
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StageTimeout
	}
	return Internal
}

// StageOf returns the stage attributed to err, or "".
func StageOf(err error) string {
	var ferr *faultError
	if errors.As(err, &ferr) {
		return ferr.stage
	}
	return ""
}

// DetailOf returns the sanitized detail of err, falling back to the wrapped
// error text.
func DetailOf(err error) string {
	var ferr *faultError
	if errors.As(err, &ferr) {
		if ferr.detail != "" {
			return ferr.detail
		}
		if ferr.err != nil {
			return sanitizeDetail(ferr.err.Error())
		}
		return ""
	}
	if err != nil {
		return sanitizeDetail(err.Error())
	}
	return ""
}

// IsKind reports whether err carries the given failure class.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ExitCode maps err to the CLI exit code contract.
func ExitCode(err error) int {
	return KindOf(err).ExitCode()
}

// ExitCode maps the failure class to the CLI exit code contract. Unknown
// kinds count as pipeline errors.
func (k Kind) ExitCode() int {
	switch k {
	case KindNone:
		return ExitOK
	case InputInvalid, InputTooLarge:
		return ExitInputInvalid
	case Cancelled:
		return ExitCancelled
	case StageTimeout, StaleTimeout:
		return ExitTimeout
	default:
		return ExitPipelineError
	}
}

func sanitizeDetail(detail string) string {
	if detail == "" {
		return ""
	}
	const maxLen = 160
	clean := strings.ReplaceAll(detail, "\n", " ")
	if len(clean) > maxLen {
		return clean[:maxLen] + "..."
	}
	return clean
}
