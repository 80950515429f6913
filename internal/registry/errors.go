package registry

import "errors"

// Sentinel errors for the error kinds named in the specification's
// boundary contract (§6, §7). Handlers compare with errors.Is and map
// these to HTTP status codes; the registry package itself never knows
// about status codes.
var (
	// Input errors (422).
	ErrInvalidSchema        = errors.New("invalid schema")
	ErrInvalidVersion       = errors.New("invalid version")
	ErrInvalidCompatibility = errors.New("invalid compatibility level")

	// Not-found errors (404).
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrVersionNotFound = errors.New("version not found")

	// Semantic rejection (409).
	ErrIncompatibleSchema = errors.New("incompatible schema")

	// Transient coordination errors (5xx, retriable).
	ErrNotPrimary     = errors.New("not primary")
	ErrLogUnavailable = errors.New("log unavailable")
)
