package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/schema-registry/internal/api/types"
	"github.com/streamforge/schema-registry/internal/compatibility"
	compatavro "github.com/streamforge/schema-registry/internal/compatibility/avro"
	"github.com/streamforge/schema-registry/internal/config"
	"github.com/streamforge/schema-registry/internal/coordinator"
	schemaavro "github.com/streamforge/schema-registry/internal/schema/avro"
	"github.com/streamforge/schema-registry/internal/registry"
	"github.com/streamforge/schema-registry/internal/statemachine"
	"github.com/streamforge/schema-registry/internal/walog"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	path := filepath.Join(t.TempDir(), "log")
	log, err := walog.Open(path)
	require.NoError(t, err)
	sm := statemachine.New(log, nil, nil)
	require.NoError(t, sm.Bootstrap())

	checker := compatibility.NewChecker()
	checker.Register(compatavro.NewChecker())
	coord := coordinator.NewStaticCoordinator(coordinator.RolePrimary, "self:8080")
	lease := coordinator.NewSubjectLease()

	reg := registry.New(sm, schemaavro.NewParser(), checker, coord, lease, nil, nil)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServer(cfg, reg, logger)
}

func TestServerHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerRegisterThenListSubjects(t *testing.T) {
	server := setupTestServer(t)

	body, _ := json.Marshal(types.RegisterSchemaRequest{
		Schema: `{"type":"record","name":"User","fields":[{"name":"id","type":"long"}]}`,
	})
	req := httptest.NewRequest("POST", "/subjects/orders/versions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest("GET", "/subjects", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var subjects []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&subjects))
	assert.Equal(t, []string{"orders"}, subjects)
}

func TestServerMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t)

	// /metrics itself is not counted, so one other request is made first
	// for the requests counter to have a series to expose.
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "schema_registry_requests_total")
}
