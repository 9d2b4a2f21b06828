package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("Should suppress messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Level: "error", Output: &buf})
		l.Info("quiet")
		assert.Empty(t, buf.String())
		l.Error("loud")
		assert.Contains(t, buf.String(), "loud")
	})
	t.Run("Should emit JSON when the json format is selected", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Level: "info", Format: "json", Output: &buf})
		l.Info("indexed", "chunks", 3)
		line := strings.TrimSpace(buf.String())
		assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
		assert.Contains(t, line, `"chunks"`)
	})
	t.Run("Should fall back to info for unknown levels", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Level: "chatty", Output: &buf})
		l.Debug("hidden")
		assert.Empty(t, buf.String())
		l.Info("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
