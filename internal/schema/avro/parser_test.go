package avro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsInvalidSchema(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(`{"type": "not-a-real-type"}`)
	require.Error(t, err)
}

func TestParseWhitespaceCanonicalEquality(t *testing.T) {
	p := NewParser()
	a, err := p.Parse(`{   "type":   "string"}`)
	require.NoError(t, err)
	b, err := p.Parse(`{"type":"string"}`)
	require.NoError(t, err)

	assert.Equal(t, a.CanonicalString(), b.CanonicalString())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestCanonicalizeFixedAttributeOrder(t *testing.T) {
	text := `{"type":"record","fields":[{"name":"f","type":"string","doc":"ignored"}],"name":"r","doc":"ignored"}`
	canonical, err := Canonicalize(text)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"record","name":"r","fields":[{"type":"string","name":"f"}]}`, canonical)
}

func TestCanonicalizeElidesDocAliasesDefaultOrder(t *testing.T) {
	text := `{"type":"record","name":"r","fields":[{"name":"f","type":"string","default":"x","order":"ignore","aliases":["g"]}]}`
	canonical, err := Canonicalize(text)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"record","name":"r","fields":[{"type":"string","name":"f"}]}`, canonical)
}

func TestCanonicalizeResolvesNamespaceOnDefinition(t *testing.T) {
	text := `{"type":"record","name":"r","namespace":"com.example","fields":[]}`
	canonical, err := Canonicalize(text)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"record","name":"r","namespace":"com.example","fields":[]}`, canonical)
}

func TestCanonicalizeResolvesDottedNameIntoNamespace(t *testing.T) {
	text := `{"type":"record","name":"com.example.r","fields":[]}`
	canonical, err := Canonicalize(text)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"record","name":"r","namespace":"com.example","fields":[]}`, canonical)
}

func TestCanonicalizeResolvesBareTypeReferenceToFQN(t *testing.T) {
	text := `{"type":"record","name":"outer","namespace":"com.example",` +
		`"fields":[{"name":"f","type":"inner"}]}`
	canonical, err := Canonicalize(text)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"record","name":"outer","namespace":"com.example","fields":[{"type":"com.example.inner","name":"f"}]}`,
		canonical)
}

func TestCanonicalizeArrayAndMap(t *testing.T) {
	canonical, err := Canonicalize(`{"type":"array","items":"string"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"array","items":"string"}`, canonical)

	canonical, err = Canonicalize(`{"type":"map","values":"long"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"map","values":"long"}`, canonical)
}

func TestCanonicalizeEnumAndFixed(t *testing.T) {
	canonical, err := Canonicalize(`{"type":"enum","name":"suit","symbols":["SPADES","HEARTS"]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"enum","name":"suit","symbols":["SPADES","HEARTS"]}`, canonical)

	canonical, err = Canonicalize(`{"type":"fixed","name":"md5","size":16}`)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"fixed","name":"md5","size":16}`, canonical)
}

func TestHasTopLevelField(t *testing.T) {
	p := NewParser()
	s, err := p.Parse(`{"type":"record","name":"r","fields":[{"name":"f","type":"string"}]}`)
	require.NoError(t, err)
	assert.True(t, s.HasTopLevelField("f"))
	assert.False(t, s.HasTopLevelField("missing"))
}
