package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadMessageWireShape(t *testing.T) {
	data, err := json.Marshal(NewReloadMessage("guide/intro.md"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reload","path":"guide/intro.md"}`, string(data))

	data, err = json.Marshal(NewReloadMessage(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reload","path":null}`, string(data))

	// The path key stays present even when null; the browser client
	// treats a missing key as a malformed message.
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	raw, ok := decoded["path"]
	require.True(t, ok)
	assert.Equal(t, "null", string(raw))
}

func TestErrorMessageWireShape(t *testing.T) {
	data, err := json.Marshal(NewErrorMessage("file too large"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"file too large"}`, string(data))
}
