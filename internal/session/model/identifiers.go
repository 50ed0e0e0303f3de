// SPDX-License-Identifier: MIT

package model

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// Session IDs double as directory names and URL path segments, so the
// alphabet stays strictly URL-safe with no leading punctuation.
var sessionIDRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

// IsSafeID reports whether id is safe for URLs and filesystem paths.
func IsSafeID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// NewID returns a fresh random session ID.
func NewID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
