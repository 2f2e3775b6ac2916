package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestAutoFormatUsesJSONForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "auto", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Integration finished", "books", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Integration finished", entry["msg"])
	assert.Equal(t, float64(3), entry["books"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "text", &buf)
	require.NoError(t, err)

	logger.Debug("Loaded", "records", 2)
	assert.Contains(t, buf.String(), "msg=Loaded")
	assert.Contains(t, buf.String(), "records=2")

	_, err = New("info", "xml", &buf)
	assert.Error(t, err)
}
