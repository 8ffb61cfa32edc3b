package logging

import (
	"bytes"
	"testing"

	"github.com/caarlos0/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    log.Level
		wantErr bool
	}{
		{"debug", "debug", log.DebugLevel, false},
		{"info", "info", log.InfoLevel, false},
		{"warn", "warn", log.WarnLevel, false},
		{"warning alias", "warning", log.WarnLevel, false},
		{"error", "error", log.ErrorLevel, false},
		{"mixed case", "DeBuG", log.DebugLevel, false},
		{"empty defaults to warn", "", log.WarnLevel, false},
		{"unknown", "verbose", log.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown log level")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, log.WarnLevel)

	l.Info("hidden message")
	assert.Empty(t, buf.String())

	l.Warn("shown message")
	assert.Contains(t, buf.String(), "shown message")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() {
		l.Error("nothing to see")
	})
}

func TestHTTPLogger(t *testing.T) {
	var buf bytes.Buffer
	h := HTTPLogger{L: New(&buf, log.DebugLevel)}

	h.Debug("performing request", "method", "POST", "url", "https://example.com")
	assert.Contains(t, buf.String(), "performing request method=POST url=https://example.com")

	buf.Reset()
	h.Error("odd pairs", "key")
	assert.Contains(t, buf.String(), "odd pairs key=(missing)")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "plain", format("plain", nil))
	assert.Equal(t, "msg a=1 b=true", format("msg", []interface{}{"a", 1, "b", true}))
}
