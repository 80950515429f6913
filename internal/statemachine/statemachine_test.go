package statemachine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/schema-registry/internal/compatibility"
	"github.com/streamforge/schema-registry/internal/store"
	"github.com/streamforge/schema-registry/internal/walog"
)

func newTestMachine(t *testing.T) *StateMachine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log")
	log, err := walog.Open(path)
	require.NoError(t, err)
	sm := New(log, nil, nil)
	require.NoError(t, sm.Bootstrap())
	return sm
}

func TestAppendRegisterSchemaAppliesImmediately(t *testing.T) {
	sm := newTestMachine(t)
	result, err := sm.AppendRegisterSchema(context.Background(), "t1", `{"type":"string"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SchemaID)
	assert.Equal(t, 1, result.VersionNumber)

	sm.View(func(s *store.Store) {
		assert.Equal(t, []string{"t1"}, s.Subjects())
	})
}

func TestAppendRegisterSchemaRespectsCancellationBeforeAppend(t *testing.T) {
	sm := newTestMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sm.AppendRegisterSchema(ctx, "t1", `{"type":"string"}`)
	assert.ErrorIs(t, err, context.Canceled)

	sm.View(func(s *store.Store) {
		assert.Empty(t, s.Subjects())
	})
}

func TestBootstrapReplaysPriorCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	log, err := walog.Open(path)
	require.NoError(t, err)
	sm := New(log, nil, nil)
	require.NoError(t, sm.Bootstrap())
	_, err = sm.AppendRegisterSchema(context.Background(), "t1", `{"type":"string"}`)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log2, err := walog.Open(path)
	require.NoError(t, err)
	sm2 := New(log2, nil, nil)
	require.NoError(t, sm2.Bootstrap())

	sm2.View(func(s *store.Store) {
		assert.Equal(t, []string{"t1"}, s.Subjects())
		id, err := s.SchemaByID(1)
		require.NoError(t, err)
		assert.Equal(t, `{"type":"string"}`, id)
	})
}

func TestAppendSetConfigAppliesImmediately(t *testing.T) {
	sm := newTestMachine(t)
	err := sm.AppendSetConfig(context.Background(), store.ConfigScope{Subject: "s"}, compatibility.ModeFull)
	require.NoError(t, err)

	sm.View(func(s *store.Store) {
		policy, ok := s.SubjectConfig("s")
		require.True(t, ok)
		assert.Equal(t, compatibility.ModeFull, policy)
	})
}

func TestCrossSubjectFingerprintSharingAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	log, err := walog.Open(path)
	require.NoError(t, err)
	sm := New(log, nil, nil)
	require.NoError(t, sm.Bootstrap())

	_, err = sm.AppendRegisterSchema(context.Background(), "a", `{"type":"string"}`)
	require.NoError(t, err)
	_, err = sm.AppendRegisterSchema(context.Background(), "b", `{"type":"string"}`)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log2, err := walog.Open(path)
	require.NoError(t, err)
	sm2 := New(log2, nil, nil)
	require.NoError(t, sm2.Bootstrap())

	sm2.View(func(s *store.Store) {
		va, err := s.GetVersion("a", 0, true)
		require.NoError(t, err)
		vb, err := s.GetVersion("b", 0, true)
		require.NoError(t, err)
		assert.Equal(t, va.SchemaID, vb.SchemaID)
	})
}
