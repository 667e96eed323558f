package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json"}, &buf)

	log.Info("queue started", "workers", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "queue started", entry["msg"])
	assert.Equal(t, float64(4), entry["workers"])
}

func TestNew_TextFormatIsDefault(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "nonsense"}, &buf)

	log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text"}, &buf)

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestParseLevel_InvalidDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel("not-a-level"))
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
}
