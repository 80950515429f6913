package handlers

import (
	"strconv"

	"github.com/streamforge/schema-registry/internal/compatibility"
)

// Error codes returned in the body alongside the HTTP status, matching
// the code/message shape clients of the wire-compatible subset of this
// API already expect.
const (
	errCodeInvalidSchema        = 42201
	errCodeInvalidVersion       = 42202
	errCodeInvalidCompatibility = 42203
	errCodeSubjectNotFound      = 40401
	errCodeSchemaNotFound       = 40403
	errCodeVersionNotFound      = 40402
	errCodeIncompatibleSchema   = 40901
	errCodeRetriable            = 50301
	errCodeInternal             = 50001
)

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func compatibilityMode(raw string) compatibility.Mode {
	mode, _ := compatibility.ParseMode(raw)
	return mode
}
