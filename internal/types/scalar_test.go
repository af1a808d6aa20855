package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarKinds(t *testing.T) {
	assert.Equal(t, "string", StringValue("x").TypeName())
	assert.Equal(t, "number", NumberValue(1).TypeName())
	assert.Equal(t, "boolean", BoolValue(true).TypeName())
	assert.False(t, Scalar{}.IsValid())
}

func TestScalarUnmarshalRejectsContainers(t *testing.T) {
	for _, input := range []string{`{"a":1}`, `[1,2]`, `null`} {
		var s Scalar
		err := json.Unmarshal([]byte(input), &s)
		assert.ErrorIs(t, err, ErrInvalidScalar, input)
	}
}

func TestScalarUnmarshalValues(t *testing.T) {
	var s Scalar
	require.NoError(t, json.Unmarshal([]byte(`"Hello <b>"`), &s))
	str, ok := s.Str()
	assert.True(t, ok)
	assert.Equal(t, "Hello <b>", str)

	require.NoError(t, json.Unmarshal([]byte(`1.50`), &s))
	assert.Equal(t, KindNumber, s.Kind())
	assert.Equal(t, "1.50", s.JSONLiteral(), "number literal should round-trip verbatim")

	require.NoError(t, json.Unmarshal([]byte(`false`), &s))
	b, ok := s.Bool()
	assert.True(t, ok)
	assert.False(t, b)
}

func TestScalarEqual(t *testing.T) {
	lit, err := NumberLiteral("2.0")
	require.NoError(t, err)
	assert.True(t, lit.Equal(NumberValue(2)))
	assert.False(t, StringValue("2").Equal(NumberValue(2)))
	assert.True(t, BoolValue(true).Equal(BoolValue(true)))
}

func TestQuoteJSONDoesNotEscapeHTML(t *testing.T) {
	assert.Equal(t, `"a<b>&\"c\""`, QuoteJSON(`a<b>&"c"`))
}

func TestScalarFromAny(t *testing.T) {
	s, err := ScalarFromAny("x")
	require.NoError(t, err)
	assert.Equal(t, "x", s.String())

	s, err = ScalarFromAny(float64(3))
	require.NoError(t, err)
	assert.Equal(t, "3", s.String())

	_, err = ScalarFromAny(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrInvalidScalar)
}

func TestIndexedTranslationFilter(t *testing.T) {
	it := IndexedTranslation{
		"en": {Value: StringValue("Hello")},
		"es": {Value: StringValue("Hola")},
	}
	filtered := it.Filter([]string{"es", "fr"})
	assert.Len(t, filtered, 1)
	assert.Contains(t, filtered, "es")

	all := it.Filter(nil)
	all["de"] = TranslationEntry{}
	assert.Len(t, it, 2, "filter must return a copy")
}
