// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
)

// Environment overrides funnel through envValue so every effective override
// shows up once in the debug log, with secret-bearing values redacted.

// ParseString reads a string override, falling back to defaultValue when the
// variable is unset or empty.
func ParseString(key, defaultValue string) string {
	return parseString(log.WithComponent("config"), key, defaultValue)
}

func parseString(logger zerolog.Logger, key, defaultValue string) string {
	if v, ok := envValue(logger, key); ok {
		return v
	}
	return defaultValue
}

// ParseInt reads an integer override. Unparseable values are reported and
// ignored rather than aborting the load.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	raw, ok := envValue(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		warnInvalid(logger, key, raw, "integer")
		return defaultValue
	}
	return i
}

// ParseFloat reads a float64 override.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	raw, ok := envValue(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnInvalid(logger, key, raw, "float")
		return defaultValue
	}
	return f
}

// ParseDuration reads a duration override in Go syntax ("90s", "5m").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	raw, ok := envValue(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		warnInvalid(logger, key, raw, "duration")
		return defaultValue
	}
	return d
}

// ParseBool reads a boolean override. Accepted spellings are "true", "false",
// "1", "0", "yes" and "no", case-insensitive.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	raw, ok := envValue(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		warnInvalid(logger, key, raw, "boolean")
		return defaultValue
	}
}

// envValue returns the value of key when it is set non-empty and logs the
// override. An empty variable counts as unset so REELDOC_X= does not clobber
// a file-provided setting with "".
func envValue(logger zerolog.Logger, key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value, true
}

// sensitiveKey reports whether the variable likely holds a secret. Matching a
// bare "key" would also catch REELDOC_MAX_KEYFRAMES, so API keys match on the
// full "api_key" suffix.
func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "api_key") ||
		strings.Contains(k, "password") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "token")
}

func warnInvalid(logger zerolog.Logger, key, raw, kind string) {
	logger.Warn().
		Str("key", key).
		Str("value", raw).
		Str("want", kind).
		Msg("invalid value in environment variable, using default")
}
