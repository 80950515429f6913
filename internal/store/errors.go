package store

import "errors"

// Sentinel errors returned by Store read queries. Callers compare with
// errors.Is; the registry facade and HTTP layer translate these into the
// error kinds and status codes named in the specification's boundary
// contract.
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrVersionNotFound = errors.New("version not found")
)
