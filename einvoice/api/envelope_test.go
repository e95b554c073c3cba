package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"extra":{"a":[1,2]},"ok":true,"payload":[{"id":"1"}]}`))
	require.NoError(t, err)
	assert.True(t, env.ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(env.payload))
}

func TestDecodeEnvelope_Message(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"ok":false,"message":"denied","payload":null}`))
	require.NoError(t, err)
	assert.False(t, env.ok)
	assert.Equal(t, "denied", env.message)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	for _, body := range []string{"", "<html></html>", "[1,2]", `{"payload":1}`, `{"ok":"yes"}`} {
		_, err := decodeEnvelope([]byte(body))
		assert.Error(t, err, body)
	}
}
