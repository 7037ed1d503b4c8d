package llmstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArguments_KeepsDocumentOrder(t *testing.T) {
	args, err := ParseArguments(`{"zeta":1,"alpha":"a","mid":true}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, args.Keys())
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":true}`, args.JSON())
}

func TestParseArguments_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		args, err := ParseArguments(raw)
		require.NoError(t, err)
		assert.Equal(t, 0, args.Len())
		assert.Equal(t, "{}", args.JSON())
	}
}

func TestParseArguments_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated object", `{"city":"Par`},
		{"not JSON", `city=Paris`},
		{"array", `[1,2]`},
		{"string", `"Paris"`},
		{"number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArguments(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseArguments_ValueTypes(t *testing.T) {
	args, err := ParseArguments(`{"n":12345678901234567890,"f":1.5,"b":false,"s":"x","z":null,"o":{"k":"v","a":[1,"two"]},"l":[]}`)
	require.NoError(t, err)

	n, _ := args.Get("n")
	assert.Equal(t, json.Number("12345678901234567890"), n)

	b, _ := args.Get("b")
	assert.Equal(t, false, b)

	z, ok := args.Get("z")
	assert.True(t, ok)
	assert.Nil(t, z)

	o, _ := args.Get("o")
	nested, ok := o.(*Arguments)
	require.True(t, ok)
	assert.Equal(t, []string{"k", "a"}, nested.Keys())
	a, _ := nested.Get("a")
	assert.Equal(t, []any{json.Number("1"), "two"}, a)

	l, _ := args.Get("l")
	assert.Equal(t, []any{}, l)

	_, ok = args.Get("missing")
	assert.False(t, ok)

	// Numbers survive re-encoding unchanged.
	assert.Equal(t, `{"n":12345678901234567890,"f":1.5,"b":false,"s":"x","z":null,"o":{"k":"v","a":[1,"two"]},"l":[]}`, args.JSON())
}

func TestArguments_Map(t *testing.T) {
	args, err := ParseArguments(`{"city":"Paris","days":3,"opts":{"metric":true}}`)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"city": "Paris",
		"days": float64(3),
		"opts": map[string]any{"metric": true},
	}, args.Map())
}

func TestArguments_Set(t *testing.T) {
	args := &Arguments{}
	args.Set("a", 1)
	args.Set("b", 2)
	args.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, args.Keys())
	v, _ := args.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, []Argument{{Key: "a", Value: 3}, {Key: "b", Value: 2}}, args.Entries())
}

func TestArguments_NilReceiver(t *testing.T) {
	var args *Arguments

	assert.Equal(t, 0, args.Len())
	assert.Nil(t, args.Keys())
	assert.Equal(t, "{}", args.JSON())
	assert.Empty(t, args.Map())
}

func TestArguments_JSONRoundTrip(t *testing.T) {
	call := FunctionCall{CallID: "toolu_1", Name: "search"}
	require.NoError(t, json.Unmarshal([]byte(`{"call_id":"toolu_1","name":"search","arguments":{"q":"go","limit":5}}`), &call))

	require.NotNil(t, call.Arguments)
	assert.Equal(t, []string{"q", "limit"}, call.Arguments.Keys())

	out, err := json.Marshal(call.Arguments)
	require.NoError(t, err)
	assert.Equal(t, `{"q":"go","limit":5}`, string(out))

	var empty Arguments
	require.NoError(t, json.Unmarshal([]byte("null"), &empty))
	assert.Equal(t, 0, empty.Len())
}
