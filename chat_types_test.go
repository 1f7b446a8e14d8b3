package keshavai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{
			name:     "short message verbatim",
			message:  "Hello",
			expected: "Hello",
		},
		{
			name:     "exactly fifty characters verbatim",
			message:  strings.Repeat("a", 50),
			expected: strings.Repeat("a", 50),
		},
		{
			name:     "long message truncated with ellipsis",
			message:  strings.Repeat("b", 51),
			expected: strings.Repeat("b", 50) + "...",
		},
		{
			name:     "multibyte runes counted as runes",
			message:  strings.Repeat("é", 60),
			expected: strings.Repeat("é", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveTitle(tt.message))
		})
	}
}

func TestNewChat(t *testing.T) {
	first := newChat("gpt-4")
	second := newChat("gpt-4")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, DefaultChatTitle, first.Title)
	assert.Equal(t, "gpt-4", first.Model)
	assert.Empty(t, first.Messages)
	assert.False(t, first.CreatedAt.IsZero())
}
