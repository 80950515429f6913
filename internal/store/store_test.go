package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/schema-registry/internal/compatibility"
)

func TestApplyRegisterSchemaAssignsIdsAndVersions(t *testing.T) {
	s := New()

	r1 := s.ApplyRegisterSchema("t1", `{"type":"string"}`, "fp-a")
	assert.Equal(t, int64(1), r1.SchemaID)
	assert.Equal(t, 1, r1.VersionNumber)
	assert.True(t, r1.Created)

	assert.Equal(t, []string{"t1"}, s.Subjects())
	versions, err := s.Versions("t1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestApplyRegisterSchemaCrossSubjectSharesID(t *testing.T) {
	s := New()
	r1 := s.ApplyRegisterSchema("a", `{"type":"string"}`, "fp-a")
	r2 := s.ApplyRegisterSchema("b", `{"type":"string"}`, "fp-a")

	assert.Equal(t, r1.SchemaID, r2.SchemaID)
	assert.Equal(t, 1, r2.VersionNumber)
}

func TestApplyRegisterSchemaIdempotentWithinSubject(t *testing.T) {
	s := New()
	r1 := s.ApplyRegisterSchema("t", `{"type":"string"}`, "fp-a")
	r2 := s.ApplyRegisterSchema("t", `{"type":"string"}`, "fp-a")

	assert.Equal(t, r1.SchemaID, r2.SchemaID)
	assert.Equal(t, r1.VersionNumber, r2.VersionNumber)
	assert.False(t, r2.Created)

	versions, err := s.Versions("t")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestApplyRegisterSchemaNewSchemaNewVersion(t *testing.T) {
	s := New()
	s.ApplyRegisterSchema("t", `{"type":"string"}`, "fp-a")
	r2 := s.ApplyRegisterSchema("t", `{"type":"int"}`, "fp-b")

	assert.Equal(t, int64(2), r2.SchemaID)
	assert.Equal(t, 2, r2.VersionNumber)
}

func TestGetVersionErrors(t *testing.T) {
	s := New()
	_, err := s.GetVersion("missing", 1, false)
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	s.ApplyRegisterSchema("t", `{"type":"string"}`, "fp-a")
	_, err = s.GetVersion("t", 5, false)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	v, err := s.GetVersion("t", 0, true)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Number)
}

func TestSchemaByIDNotFound(t *testing.T) {
	s := New()
	_, err := s.SchemaByID(99)
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestConfigFallback(t *testing.T) {
	s := New()
	assert.Equal(t, compatibility.ModeNone, s.GlobalConfig())
	assert.Equal(t, compatibility.ModeNone, s.EffectivePolicy("s"))

	s.ApplySetConfig(ConfigScope{}, compatibility.ModeForward)
	assert.Equal(t, compatibility.ModeForward, s.GlobalConfig())
	_, ok := s.SubjectConfig("s")
	assert.False(t, ok)
	assert.Equal(t, compatibility.ModeForward, s.EffectivePolicy("s"))

	s.ApplySetConfig(ConfigScope{Subject: "s"}, compatibility.ModeFull)
	policy, ok := s.SubjectConfig("s")
	require.True(t, ok)
	assert.Equal(t, compatibility.ModeFull, policy)
	assert.Equal(t, compatibility.ModeForward, s.GlobalConfig())
}

func TestSetConfigOnSchemalessSubjectDoesNotAppearInSubjects(t *testing.T) {
	s := New()
	s.ApplySetConfig(ConfigScope{Subject: "brand-new"}, compatibility.ModeFull)
	assert.Empty(t, s.Subjects())
	assert.False(t, s.HasSubject("brand-new"))
}
