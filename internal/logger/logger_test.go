package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	l := setup(&buf, "toko-order-api", "warn")
	l.Info().Msg("hidden")
	l.Warn().Str("component", "test").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "toko-order-api", line["service"])
	assert.Equal(t, "warn", line["level"])
	assert.Contains(t, line, "time")
}

func TestSetup_UnknownLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	setup(&bytes.Buffer{}, "svc", "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
