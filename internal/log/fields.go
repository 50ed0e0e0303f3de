// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"

	// Pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldMode      = "mode"
	FieldAdapter   = "adapter"
	FieldAttempt   = "attempt"

	// Media fields
	FieldDuration   = "duration_sec"
	FieldResolution = "resolution"
	FieldCodec      = "codec"

	// Model fields
	FieldProvider = "provider"
	FieldModel    = "model"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"
	FieldReason    = "reason"

	// Path fields
	FieldPath = "path"
)
