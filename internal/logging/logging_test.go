package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{Level: "debug"}, &buf)
	require.NoError(t, err)

	ul := ForUser(l, "u1")
	ul.Debug().Str("trade_id", "t1").Msg("trade opened")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "trade opened", rec["message"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "t1", rec["trade_id"])
	assert.Equal(t, "debug", rec["level"])
}

func TestLevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "app.log")
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", File: true, FilePath: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Info().Msg("to disk")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to disk")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{}, &buf)
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), l)
	cl := FromContext(ctx)
	cl.Info().Msg("via ctx")
	assert.Contains(t, buf.String(), "via ctx")

	// no logger stored: must not panic
	nl := FromContext(context.Background())
	nl.Info().Msg("dropped")
}
