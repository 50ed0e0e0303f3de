// SPDX-License-Identifier: MIT

package fault

// Record is the user-visible failure shape persisted in session state and
// printed by the CLI.
type Record struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Stage     string `json:"stage,omitempty"`
	SessionID string `json:"session_id"`
}

// RecordOf flattens err into a Record for the given session. Returns the zero
// Record when err is nil.
func RecordOf(err error, sessionID string) Record {
	if err == nil {
		return Record{}
	}
	return Record{
		Kind:      KindOf(err),
		Message:   DetailOf(err),
		Stage:     StageOf(err),
		SessionID: sessionID,
	}
}
