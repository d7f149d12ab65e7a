package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmt/internal/log"
)

func TestCreateHandler_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	h, err := log.CreateHandler(&buf, "warn", "logfmt")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("hidden")
	logger.Warn("shown", "path", "Mods/A/meta.lsx")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "Mods/A/meta.lsx")
}

func TestCreateHandler_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	h, err := log.CreateHandler(&buf, "debug", "json")
	require.NoError(t, err)

	slog.New(h).Debug("upgraded", "rewritten", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "upgraded", entry["msg"])
}

func TestCreateHandler_RejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := log.CreateHandler(&bytes.Buffer{}, "loud", "text")
	require.ErrorIs(t, err, log.ErrInvalidLevel)

	_, err = log.CreateHandler(&bytes.Buffer{}, "info", "xml")
	require.ErrorIs(t, err, log.ErrInvalidFormat)
}
