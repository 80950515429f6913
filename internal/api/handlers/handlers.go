// Package handlers provides HTTP request handlers for the schema
// registry's transport layer (spec §6).
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/streamforge/schema-registry/internal/api/types"
	"github.com/streamforge/schema-registry/internal/registry"
)

// Handler provides HTTP handlers for the schema registry.
type Handler struct {
	registry *registry.Registry
}

// New creates a new Handler.
func New(reg *registry.Registry) *Handler {
	return &Handler{registry: reg}
}

// HealthCheck handles GET /
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// LivenessCheck handles GET /health/live. Always returns 200 — confirms
// the process is alive and not deadlocked.
func (h *Handler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// ReadinessCheck handles GET /health/ready. Returns 200 once bootstrap
// replay has completed, by touching a read through the registry.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	h.registry.ListSubjects()
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// RegisterSchema handles POST /subjects/{subject}/versions
func (h *Handler) RegisterSchema(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var req types.RegisterSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidSchema, "Invalid request body")
		return
	}
	if req.Schema == "" {
		writeError(w, http.StatusUnprocessableEntity, errCodeInvalidSchema, "Empty schema")
		return
	}

	id, err := h.registry.Register(r.Context(), subject, req.Schema)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.RegisterSchemaResponse{ID: id})
}

// LookupSchema handles POST /subjects/{subject}
func (h *Handler) LookupSchema(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var req types.LookupSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidSchema, "Invalid request body")
		return
	}

	result, err := h.registry.Lookup(subject, req.Schema)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.LookupSchemaResponse{
		Subject: subject,
		ID:      result.SchemaID,
		Version: result.Number,
		Schema:  result.CanonicalText,
	})
}

// GetSchemaByID handles GET /schemas/ids/{id}
func (h *Handler) GetSchemaByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := parseInt64(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidSchema, "Invalid schema ID")
		return
	}

	text, err := h.registry.GetSchemaByID(id)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.SchemaResponse{Schema: text})
}

// ListSubjects handles GET /subjects
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ListSubjects())
}

// GetVersions handles GET /subjects/{subject}/versions
func (h *Handler) GetVersions(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	versions, err := h.registry.ListVersions(subject)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// GetVersion handles GET /subjects/{subject}/versions/{version}
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	versionStr := chi.URLParam(r, "version")

	result, err := h.registry.GetVersion(subject, versionStr)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.SubjectVersionResponse{
		Subject: subject,
		ID:      result.SchemaID,
		Version: result.Number,
		Schema:  result.CanonicalText,
	})
}

// GetConfig handles GET /config and GET /config/{subject}
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	policy, ok := h.registry.GetConfig(subject)
	if !ok {
		writeError(w, http.StatusNotFound, errCodeSubjectNotFound,
			fmt.Sprintf("Subject '%s' does not have subject-level compatibility configured", subject))
		return
	}

	writeJSON(w, http.StatusOK, types.ConfigResponse{CompatibilityLevel: string(policy)})
}

// SetConfig handles PUT /config and PUT /config/{subject}
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var req types.ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidCompatibility, "Invalid request body")
		return
	}

	policy := compatibilityMode(req.Compatibility)
	if err := h.registry.SetConfig(r.Context(), subject, policy); err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.ConfigResponse{CompatibilityLevel: strings.ToUpper(req.Compatibility)})
}

// CheckCompatibility handles POST /compatibility/subjects/{subject}/versions/{version}
func (h *Handler) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	versionStr := chi.URLParam(r, "version")

	var req types.CompatibilityCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidSchema, "Invalid request body")
		return
	}

	result, err := h.registry.TestCompatibility(subject, req.Schema, versionStr)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	verbose := r.URL.Query().Get("verbose") == "true"
	resp := types.CompatibilityCheckResponse{IsCompatible: result.IsCompatible}
	if verbose {
		resp.Messages = result.Messages
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code int, message string) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{ErrorCode: code, Message: message})
}

// writeRegistryError maps a registry error to the HTTP status taxonomy
// named in the specification's boundary contract (spec §7).
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidSchema):
		writeError(w, http.StatusUnprocessableEntity, errCodeInvalidSchema, err.Error())
	case errors.Is(err, registry.ErrInvalidVersion):
		writeError(w, http.StatusUnprocessableEntity, errCodeInvalidVersion, err.Error())
	case errors.Is(err, registry.ErrInvalidCompatibility):
		writeError(w, http.StatusUnprocessableEntity, errCodeInvalidCompatibility, err.Error())
	case errors.Is(err, registry.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, errCodeSubjectNotFound, err.Error())
	case errors.Is(err, registry.ErrSchemaNotFound):
		writeError(w, http.StatusNotFound, errCodeSchemaNotFound, err.Error())
	case errors.Is(err, registry.ErrVersionNotFound):
		writeError(w, http.StatusNotFound, errCodeVersionNotFound, err.Error())
	case errors.Is(err, registry.ErrIncompatibleSchema):
		writeError(w, http.StatusConflict, errCodeIncompatibleSchema, err.Error())
	case errors.Is(err, registry.ErrNotPrimary), errors.Is(err, registry.ErrLogUnavailable):
		writeError(w, http.StatusServiceUnavailable, errCodeRetriable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
	}
}
