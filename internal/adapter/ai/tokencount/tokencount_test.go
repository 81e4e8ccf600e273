package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"gpt-4-turbo":             "gpt-4",
		"GPT-4o-mini":             "gpt-4",
		"openai/gpt-3.5-turbo":    "gpt-3.5-turbo",
		"models/gemini-1.5-flash": "gemini-1.5-flash",
		" llama-3.1-8b ":          "llama-3.1-8b",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeModelName(in), in)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	n, err := c.CountTokens("Hello, world!", "gpt-4")
	require.NoError(t, err)
	assert.InDelta(t, 4, n, 1)

	// unknown models use the fallback encoding
	g, err := c.CountTokens("Hello, world!", "gemini-1.5-flash")
	require.NoError(t, err)
	assert.Equal(t, n, g)

	empty, err := c.CountTokens("", "gemini-1.5-flash")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestCountChatTokens_IncludesFraming(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	sys, err := c.CountTokens("You are an interviewer.", "gemini-1.5-flash")
	require.NoError(t, err)
	user, err := c.CountTokens("Tell me about yourself.", "gemini-1.5-flash")
	require.NoError(t, err)

	total, err := c.CountChatTokens("You are an interviewer.", "Tell me about yourself.", "gemini-1.5-flash")
	require.NoError(t, err)
	assert.Greater(t, total, sys+user)
}

func TestUsage(t *testing.T) {
	t.Parallel()

	u := NewCounter().Usage("sys", "user prompt", "Score: 8", "gemini-1.5-flash")
	assert.Positive(t, u.PromptTokens)
	assert.Positive(t, u.CompletionTokens)
	assert.Equal(t, u.PromptTokens+u.CompletionTokens, u.TotalTokens)
	assert.Equal(t, "gemini-1.5-flash", u.Model)
}
