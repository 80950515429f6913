package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/schema-registry/internal/compatibility"
	compatavro "github.com/streamforge/schema-registry/internal/compatibility/avro"
	"github.com/streamforge/schema-registry/internal/coordinator"
	schemaavro "github.com/streamforge/schema-registry/internal/schema/avro"
	"github.com/streamforge/schema-registry/internal/statemachine"
	"github.com/streamforge/schema-registry/internal/walog"
)

const recordV1 = `{"type":"record","name":"User","fields":[{"name":"id","type":"long"}]}`
const recordV2 = `{"type":"record","name":"User","fields":[{"name":"id","type":"long"},{"name":"email","type":"string","default":""}]}`
const recordV2Breaking = `{"type":"record","name":"User","fields":[{"name":"id","type":"long"},{"name":"email","type":"string"}]}`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log")
	log, err := walog.Open(path)
	require.NoError(t, err)
	sm := statemachine.New(log, nil, nil)
	require.NoError(t, sm.Bootstrap())

	checker := compatibility.NewChecker()
	checker.Register(compatavro.NewChecker())

	coord := coordinator.NewStaticCoordinator(coordinator.RolePrimary, "self:8080")
	lease := coordinator.NewSubjectLease()

	return New(sm, schemaavro.NewParser(), checker, coord, lease, nil, nil)
}

func TestRegisterBasic(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	text, err := r.GetSchemaByID(id)
	require.NoError(t, err)
	assert.Contains(t, text, `"name":"User"`)
}

func TestRegisterSameSchemaTwoSubjectsSharesID(t *testing.T) {
	r := newTestRegistry(t)
	id1, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	id2, err := r.Register(context.Background(), "shipments", recordV1)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestRegisterCanonicalizationEquality(t *testing.T) {
	r := newTestRegistry(t)
	spaced := `{ "type" : "record" , "name":"User", "fields":[{"name":"id","type":"long"}] }`
	id1, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	id2, err := r.Register(context.Background(), "orders", spaced)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	versions, err := r.ListVersions("orders")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestRegisterIncompatibleUnderFullIsRejected(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.SetConfig(context.Background(), "orders", compatibility.ModeFull))

	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)

	_, err = r.Register(context.Background(), "orders", recordV2Breaking)
	assert.ErrorIs(t, err, ErrIncompatibleSchema)
}

func TestRegisterCompatibleUnderFullIsAccepted(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.SetConfig(context.Background(), "orders", compatibility.ModeFull))

	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	_, err = r.Register(context.Background(), "orders", recordV2)
	assert.NoError(t, err)
}

func TestGetVersionInvalidSelector(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)

	_, err = r.GetVersion("orders", "earliest")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = r.GetVersion("orders", "0")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = r.GetVersion("orders", "-1")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestGetVersionLatestAndNumbered(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	_, err = r.Register(context.Background(), "orders", recordV2)
	require.NoError(t, err)

	latest, err := r.GetVersion("orders", "latest")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Number)

	v1, err := r.GetVersion("orders", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Number)
}

func TestGetVersionSubjectNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.GetVersion("missing", "latest")
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestConfigScoping(t *testing.T) {
	r := newTestRegistry(t)

	policy, ok := r.GetConfig("")
	assert.True(t, ok)
	assert.Equal(t, compatibility.ModeNone, policy)

	_, ok = r.GetConfig("orders")
	assert.False(t, ok, "get_config on a subject with no explicit override must report absence, not fall back to global")

	require.NoError(t, r.SetConfig(context.Background(), "orders", compatibility.ModeBackward))
	policy, ok = r.GetConfig("orders")
	assert.True(t, ok)
	assert.Equal(t, compatibility.ModeBackward, policy)

	assert.NotContains(t, r.ListSubjects(), "orders", "setting config alone must not register a subject")
}

func TestSetConfigInvalidCompatibility(t *testing.T) {
	r := newTestRegistry(t)
	err := r.SetConfig(context.Background(), "orders", compatibility.Mode("bogus"))
	assert.ErrorIs(t, err, ErrInvalidCompatibility)
}

func TestLookupFindsExactMatch(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)

	found, err := r.Lookup("orders", recordV1)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Number)
}

func TestLookupSubjectNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Lookup("missing", recordV1)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestLookupSchemaNotFoundUnderExistingSubject(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)

	_, err = r.Lookup("orders", recordV2)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestTestCompatibilityDoesNotMutate(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.SetConfig(context.Background(), "orders", compatibility.ModeFull))
	_, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)

	result, err := r.TestCompatibility("orders", recordV2Breaking, "latest")
	require.NoError(t, err)
	assert.False(t, result.IsCompatible)

	versions, err := r.ListVersions("orders")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions, "test_compatibility must never append a version")
}

func TestRegisterInvalidSchemaRejected(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "orders", `{"type":"not-a-real-type"}`)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestRegisterForwardsWhenReplica(t *testing.T) {
	sm := func() *statemachine.StateMachine {
		path := filepath.Join(t.TempDir(), "log")
		log, err := walog.Open(path)
		require.NoError(t, err)
		sm := statemachine.New(log, nil, nil)
		require.NoError(t, sm.Bootstrap())
		return sm
	}()

	checker := compatibility.NewChecker()
	checker.Register(compatavro.NewChecker())
	coord := coordinator.NewStaticCoordinator(coordinator.RoleReplica, "primary:8080")
	lease := coordinator.NewSubjectLease()

	fwd := &fakeForwarder{id: 42}
	r := New(sm, schemaavro.NewParser(), checker, coord, lease, fwd, nil)

	id, err := r.Register(context.Background(), "orders", recordV1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "primary:8080", fwd.gotEndpoint)
}

type fakeForwarder struct {
	id          int64
	gotEndpoint string
}

func (f *fakeForwarder) ForwardRegister(ctx context.Context, endpoint, subject, schemaText string) (int64, error) {
	f.gotEndpoint = endpoint
	return f.id, nil
}

func (f *fakeForwarder) ForwardSetConfig(ctx context.Context, endpoint, subject string, policy compatibility.Mode) error {
	f.gotEndpoint = endpoint
	return nil
}
