package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactor(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name     string
		input    string
		contains string
		hidden   string
	}{
		{
			name:   "telegram bot token",
			input:  "token 1234567890:AAEhBOweik9ai2o4S2lQvR2_Tb5mwoKjLdQ",
			hidden: "AAEhBOweik9ai2o4S2lQvR2",
		},
		{
			name:   "notion legacy integration token",
			input:  "auth secret_abcdefghijklmnopqrstuvwxyz0123456789ABCD",
			hidden: "abcdefghijklmnopqrstuvwxyz",
		},
		{
			name:   "notion integration token",
			input:  "auth ntn_abcdefghijklmnopqrstuvwxyz0123456789ABCD",
			hidden: "abcdefghijklmnopqrstuvwxyz",
		},
		{
			name:   "bearer token",
			input:  "Authorization: Bearer abc.def.ghi",
			hidden: "abc.def.ghi",
		},
		{
			name:     "plain text untouched",
			input:    "added to Notion",
			contains: "added to Notion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Redact(tt.input)
			if tt.hidden != "" {
				assert.NotContains(t, out, tt.hidden)
				assert.Contains(t, out, "[REDACTED]")
			}
			if tt.contains != "" {
				assert.Equal(t, tt.contains, out)
			}
		})
	}
}

func TestRedactorCustomPatterns(t *testing.T) {
	t.Run("add pattern", func(t *testing.T) {
		r := NewRedactor()
		require.NoError(t, r.AddPattern(`chat-\d+`))
		assert.Equal(t, "from [REDACTED]", r.Redact("from chat-42"))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		r := NewRedactor()
		assert.Error(t, r.AddPattern(`(`))
	})

	t.Run("literal secret", func(t *testing.T) {
		r := NewRedactor()
		r.AddLiteral("db-1f2e.3d")
		r.AddLiteral("")
		assert.Equal(t, "database [REDACTED]", r.Redact("database db-1f2e.3d"))
		assert.Equal(t, "database db-1f2eX3d", r.Redact("database db-1f2eX3d"))
	})
}

func TestRedactorWrap(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactor().Wrap(&buf)

	input := []byte("Bearer sometoken\n")
	n, err := w.Write(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, "[REDACTED]\n", buf.String())
}
