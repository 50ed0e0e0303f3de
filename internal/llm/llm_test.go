// SPDX-License-Identifier: MIT

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "json fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "bare fence",
			in:   "```\n# Title\n\nBody text.\n```",
			want: "# Title\n\nBody text.",
		},
		{
			name: "no fence untouched",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "surrounding whitespace",
			in:   "\n\n```json\n[1, 2]\n```\n\n",
			want: "[1, 2]",
		},
		{
			name: "missing closing fence",
			in:   "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "lone fence line",
			in:   "```",
			want: "",
		},
		{
			name: "inner backticks survive",
			in:   "```markdown\nUse `go build` here.\n```",
			want: "Use `go build` here.",
		},
		{
			name: "plain prose",
			in:   "  The result is below.  ",
			want: "The result is below.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}
