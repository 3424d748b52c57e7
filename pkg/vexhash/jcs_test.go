package vexhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	type event struct {
		Zeta  string `json:"zeta"`
		Alpha string `json:"alpha"`
	}

	out, err := CanonicalJSON(event{Zeta: "z", Alpha: "a"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","zeta":"z"}`, string(out))
}

func TestCanonicalJSONNoWhitespace(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"a": []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2,3]}`, string(out))
}

func TestCanonicalJSONIntegerNumbers(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"n": 42})
	require.NoError(t, err)
	assert.Equal(t, `{"n":42}`, string(out))
}

func TestCanonicalJSONFloatNumbers(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"n": 0.5})
	require.NoError(t, err)
	assert.Equal(t, `{"n":0.5}`, string(out))
}

func TestCanonicalJSONIsDeterministicAcrossCalls(t *testing.T) {
	payload := map[string]any{
		"event_type": "AgentCreated",
		"sequence":   3,
		"data":       map[string]any{"b": 1, "a": 2},
	}

	out1, err := CanonicalJSON(payload)
	require.NoError(t, err)
	out2, err := CanonicalJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, out1, out2, "two independent encodings of the same value must be byte-identical")
}

func TestCanonicalJSONEscapesControlCharacters(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"s": "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"line1\nline2"}`, string(out))
}

func TestCanonicalJSONNestedObjectsSorted(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"outer":{"a":2,"z":1}}`, string(out))
}
