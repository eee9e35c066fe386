package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatCoercion(t *testing.T) {
	for _, testCase := range []struct {
		value    Value
		expected float64
		ok       bool
	}{
		{Number(2.5), 2.5, true},
		{String(" 42 "), 42, true},
		{String("abc"), 0, false},
		{String(""), 0, false},
		{String("NaN"), 0, false},
		{Bool(true), 1, true},
		{Null(), 0, false},
		{Date(time.UnixMilli(1000)), 1000, true},
	} {
		number, ok := testCase.value.Float()
		assert.Equal(t, testCase.ok, ok, testCase.value.String())
		assert.Equal(t, testCase.expected, number, testCase.value.String())
	}
}

func TestDistinctKeySeparatesKinds(t *testing.T) {
	assert.NotEqual(t, Number(1).DistinctKey(), String("1").DistinctKey())
	assert.True(t, String("a").Equals(String("a")))
}

func TestRowJSONKeepsKeyOrder(t *testing.T) {
	input := `{"zeta":1,"alpha":"x","mid":null,"flag":true}`

	var row Row
	require.NoError(t, json.Unmarshal([]byte(input), &row))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "flag"}, row.Keys())

	zeta, ok := row.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, KindNumber, zeta.Kind())

	mid, _ := row.Get("mid")
	assert.True(t, mid.IsNull())

	encoded, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(encoded))
	assert.Equal(t, input, string(encoded))
}

func TestFromAnyDereferencesPointers(t *testing.T) {
	text := "hello"
	var nilText *string

	assert.Equal(t, String("hello"), FromAny(&text))
	assert.True(t, FromAny(nilText).IsNull())
	assert.Equal(t, Number(7), FromAny(int32(7)))
}
