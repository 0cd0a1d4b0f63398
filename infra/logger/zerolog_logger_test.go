package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestStructuredError(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter("stress", &buf)
	l.Errorw("update wsi", errors.New("db down"), map[string]any{"village_id": "v7"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "stress", entries[0]["component"])
	assert.Equal(t, "db down", entries[0]["error"])
	assert.Equal(t, "v7", entries[0]["village_id"])
	assert.Equal(t, "error", entries[0]["level"])
}

func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"", []string{"info", "warn", "error"}},
		{"debug", []string{"debug", "debug", "info", "warn", "error"}},
		{"WARN", []string{"warn", "error"}},
		{"bogus", []string{"info", "warn", "error"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			var buf bytes.Buffer
			l := NewZerologLoggerWithWriter("dispatch", &buf)
			l.Debugf("tanker %s locked", "t-1")
			l.Debugw("plan", map[string]any{"stops": 3})
			l.Infof("route %s", "r-1")
			l.Warnf("conflict")
			l.Errorf("insert failed")

			var got []string
			for _, e := range decodeLines(t, &buf) {
				got = append(got, e["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsoleWriterInDev(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	require.NotNil(t, NewZerologLogger("alert"))
	require.NotNil(t, New("alert"))

	var nop NopLogger
	nop.Errorw("ignored", errors.New("x"), nil)
}
