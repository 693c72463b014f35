package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, Level(""))
	assert.Equal(t, zerolog.DebugLevel, Level("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, Level("warn"))
	assert.Equal(t, zerolog.InfoLevel, Level("loud"))
}

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Str("session", "s1").Logger()

	ctx := WithLogger(context.Background(), &l)
	FromContext(ctx).Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "s1", entry["session"])
	assert.Equal(t, "hello", entry["message"])
}
