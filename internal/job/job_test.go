package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Output(json.RawMessage(`{"response":"hi","done":true}`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hi","done":true}`, string(data))

	data, err = json.Marshal(Fail("Ollama API error: 500 - oops"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Ollama API error: 500 - oops"}`, string(data))

	data, err = json.Marshal(Result{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestParseInput(t *testing.T) {
	in := ParseInput(map[string]any{
		"prompt":      "hi",
		"model":       "llama3",
		"stream":      true,
		"max_tokens":  float64(32),
		"temperature": 0.2,
	})

	assert.Equal(t, "hi", in.Prompt)
	assert.Equal(t, "llama3", in.Model)
	assert.True(t, in.Stream)
	require.NotNil(t, in.MaxTokens)
	assert.Equal(t, 32, *in.MaxTokens)
	require.NotNil(t, in.Temperature)
	assert.Equal(t, 0.2, *in.Temperature)

	empty := ParseInput(nil)
	assert.Empty(t, empty.Prompt)
	assert.Nil(t, empty.Messages)
	assert.Nil(t, empty.MaxTokens)
	assert.False(t, empty.Stream)
}
