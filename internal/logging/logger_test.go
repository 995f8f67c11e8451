package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "complex secret is redacted",
			input:    "password123!@#",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Secret(tt.input).String())
			assert.Equal(t, tt.expected, Secret(tt.input).GoString())
		})
	}
}

func TestSecretRedactionInFormatVerbs(t *testing.T) {
	secret := Secret("super-secret-password")

	for _, verb := range []string{"%s", "%v", "%#v"} {
		out := fmt.Sprintf(verb, secret)
		assert.Equal(t, "[REDACTED]", out, verb)
	}
}

func TestLoggerLevels(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, true, true)

	logger.Info("formatted %s message", "info")
	logger.Warn("formatted %s message", "warn")
	logger.Error("formatted %s message", "error")
	logger.Debug("formatted %s message", "debug")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"✓ formatted info message",
		"⚠ formatted warn message",
		"✗ formatted error message",
		"[DEBUG] formatted debug message",
	}, lines)
}

func TestLoggerDebugDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Debug("hidden %s", "message")

	assert.Empty(t, buf.String())
	assert.False(t, logger.IsDebug())
}

func TestLoggerColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	var buf bytes.Buffer
	NewWithWriter(&buf, false, false).Info("hello")
	assert.Contains(t, buf.String(), "\033[32m")

	t.Setenv("NO_COLOR", "1")
	buf.Reset()
	NewWithWriter(&buf, false, false).Info("hello")
	assert.Equal(t, "✓ hello\n", buf.String())
}

func TestLoggerNeverPrintsSecret(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, true, true)

	secretValue := "debug-secret-api-key-67890"
	logger.Info("Retrieved secret: %s", Secret(secretValue))
	logger.Debug("Processing secret: %v", Secret(secretValue))

	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), secretValue)
}

// TestRedactFunction tests the Redact utility function
func TestRedactFunction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "multiple secrets redacted",
			input:    "User admin with password secret123 and API key abc123",
			secrets:  []string{"admin", "secret123", "abc123"},
			expected: "User [REDACTED] with password [REDACTED] and API key [REDACTED]",
		},
		{
			name:     "no secrets to redact",
			input:    "This has no secrets",
			secrets:  []string{},
			expected: "This has no secrets",
		},
		{
			name:     "empty secret ignored",
			input:    "This has no secrets",
			secrets:  []string{""},
			expected: "This has no secrets",
		},
		{
			name:     "short secret ignored",
			input:    "Short secret: ab",
			secrets:  []string{"ab"},
			expected: "Short secret: ab", // Too short to redact
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Redact(tt.input, tt.secrets))
		})
	}
}
