// SPDX-License-Identifier: MIT

package prompt

import "strings"

// Interpolate substitutes ${name} placeholders from vars. Missing names
// substitute to the empty string. A "${" that does not open a well-formed
// placeholder is preserved verbatim, so raw braces in sample JSON survive.
func Interpolate(s string, vars map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])

		rest := s[i+2:]
		j := strings.IndexByte(rest, '}')
		if j < 0 {
			// Unclosed "${": keep the tail as-is.
			b.WriteString(s[i:])
			return b.String()
		}

		name := rest[:j]
		if isPlaceholderName(name) {
			b.WriteString(vars[name])
			s = rest[j+1:]
			continue
		}

		// Not a placeholder; emit the "${" and rescan from after it.
		b.WriteString("${")
		s = rest
	}
}

func isPlaceholderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		case c == '_':
		default:
			return false
		}
	}
	return true
}
