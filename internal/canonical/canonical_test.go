package canonical

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"null", nil, "null"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"integral float", 20.0, "20"},
		{"fractional float", 100.5, "100.5"},
		{"zero float", 0.0, "0"},
		{"tiny float", 1e-7, "1e-7"},
		{"huge float", 1e21, "1e+21"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"output_type":    "clean_sample",
		"input_artifact": "sample.csv:latest",
		"max_price":      350.0,
		"min_price":      10.0,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t,
		`{"input_artifact":"sample.csv:latest","max_price":350,"min_price":10,"output_type":"clean_sample"}`,
		string(result))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	result, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalNFCNormalization(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	decomposed, err := Marshal("cafe\u0301")
	require.NoError(t, err)
	precomposed, err := Marshal("caf\u00e9")
	require.NoError(t, err)
	assert.Equal(t, string(precomposed), string(decomposed))
}

func TestMarshalLineSeparatorsUnescaped(t *testing.T) {
	result, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))

	// A literal backslash followed by "u2028" stays escaped.
	result, err = Marshal(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(map[string]any{"x": math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")

	_, err = Marshal(math.Inf(1))
	require.Error(t, err)
}

func TestMarshalUnsupportedType(t *testing.T) {
	_, err := Marshal(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// The surrogate pair of U+1F600 starts at 0xD83D, which sorts before
	// U+FF61 in UTF-16 even though the reverse holds for code points.
	m := map[string]any{"\uff61": 1, "\U0001F600": 2, "a": 3}
	keys := SortedKeys(m)
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, keys)
}

func TestUnmarshalRoundTrip(t *testing.T) {
	data, err := Marshal(map[string]any{"min_price": 10.5, "output_description": "Data with outliers removed"})
	require.NoError(t, err)

	m, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 10.5, m["min_price"])
	assert.Equal(t, "Data with outliers removed", m["output_description"])
}

func TestUnmarshalEmpty(t *testing.T) {
	m, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestDigestDomainSeparation(t *testing.T) {
	data := []byte("id,price\n1,50\n")
	a := Digest(DomainArtifact, data)
	b := Digest(DomainConfig, data)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)

	streamed, n, err := DigestReader(DomainArtifact, strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, a, streamed)
	assert.Equal(t, int64(len(data)), n)
}

func TestConfigDigestIgnoresKeyOrder(t *testing.T) {
	a, err := ConfigDigest(map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	b, err := ConfigDigest(map[string]any{"b": "x", "a": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
