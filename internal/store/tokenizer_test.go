package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain prose",
			in:   "AutoGen agents support tool calling.",
			want: []string{"auto", "gen", "agents", "support", "tool", "calling"},
		},
		{
			name: "snake_case identifier",
			in:   "call tool_calling now",
			want: []string{"call", "tool", "calling", "now"},
		},
		{
			name: "camelCase identifier",
			in:   "getUserById",
			want: []string{"get", "user", "by", "id"},
		},
		{
			name: "short tokens dropped",
			in:   "a b c word",
			want: []string{"word"},
		},
		{
			name: "punctuation ignored",
			in:   "tools, functions; agents!",
			want: []string{"tools", "functions", "agents"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeText(tt.in))
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"plain", []string{"plain"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitIdentifier(tt.in), tt.in)
	}
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "and"})
	_, hasThe := m["the"]
	_, hasAnd := m["and"]
	assert.True(t, hasThe)
	assert.True(t, hasAnd)
	assert.Len(t, m, 2)
}
