package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWriter(&buf, "debug", false)
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	logger.Debug().Str("post_id", "42").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "42", entry["post_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestSetupWriter_InvalidLevel(t *testing.T) {
	_, err := SetupWriter(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}

func TestLogPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	func() {
		defer LogPanics(&logger, nil)
		panic("boom")
	}()

	assert.Contains(t, buf.String(), "recovered from panic")
	assert.Contains(t, buf.String(), "boom")
}

func TestLogPanics_ReturnsError(t *testing.T) {
	logger := zerolog.Nop()
	cause := errors.New("broken")

	run := func(val interface{}) (err error) {
		defer LogPanics(&logger, &err)
		panic(val)
	}

	err := run("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	err = run(cause)
	assert.ErrorIs(t, err, cause)
}
