// Package store holds the process-resident schema registry state: the
// content-addressed schema table, the subject/version index, and the
// compatibility configuration. Every exported mutation method is meant
// to be called exclusively from the log replay path (internal/statemachine);
// the type itself carries no internal locking (concurrency is the
// replay owner's responsibility, per the specification's concurrency
// model).
package store

import (
	"github.com/streamforge/schema-registry/internal/compatibility"
)

// version is one entry in a subject's ordered version list.
type version struct {
	number   int
	schemaID int64
}

// Store is the three-index state described by the specification: a
// content-addressed schema table, a subject-to-versions index, and
// global/per-subject compatibility configuration.
type Store struct {
	schemasByID     map[int64]string
	idByFingerprint map[string]int64
	nextSchemaID    int64

	subjects     map[string][]version
	subjectOrder []string // insertion order of first registration

	globalConfig  compatibility.Mode
	subjectConfig map[string]compatibility.Mode
}

// New returns an empty Store with the global compatibility policy
// defaulted to NONE, per the specification's data model.
func New() *Store {
	return &Store{
		schemasByID:     make(map[int64]string),
		idByFingerprint: make(map[string]int64),
		nextSchemaID:    1,
		subjects:        make(map[string][]version),
		globalConfig:    compatibility.ModeNone,
		subjectConfig:   make(map[string]compatibility.Mode),
	}
}

// ---- mutation (replay-path only) ----

// RegisterResult reports what ApplyRegisterSchema decided.
type RegisterResult struct {
	SchemaID      int64
	VersionNumber int
	// Created is true iff a new version was appended to the subject (as
	// opposed to the registration being a no-op over an existing
	// (subject, schema) pair).
	Created bool
}

// ApplyRegisterSchema applies a RegisterSchema command. canonicalText
// must already be in canonical form; fingerprint must be its derived
// structural fingerprint. This method implements the replay rules in
// §4.4: the schema id is deduplicated globally by fingerprint, and the
// version number is deduplicated per subject by schema id.
func (s *Store) ApplyRegisterSchema(subject, canonicalText, fingerprint string) RegisterResult {
	schemaID, exists := s.idByFingerprint[fingerprint]
	if !exists {
		schemaID = s.nextSchemaID
		s.nextSchemaID++
		s.schemasByID[schemaID] = canonicalText
		s.idByFingerprint[fingerprint] = schemaID
	}

	versions := s.subjects[subject]
	for _, v := range versions {
		if v.schemaID == schemaID {
			return RegisterResult{SchemaID: schemaID, VersionNumber: v.number, Created: false}
		}
	}

	if _, seen := s.subjects[subject]; !seen {
		s.subjectOrder = append(s.subjectOrder, subject)
	}
	versionNumber := len(versions) + 1
	s.subjects[subject] = append(versions, version{number: versionNumber, schemaID: schemaID})

	return RegisterResult{SchemaID: schemaID, VersionNumber: versionNumber, Created: true}
}

// ConfigScope names the target of a SetConfig command.
type ConfigScope struct {
	Subject string // empty means Global
}

// Global reports whether the scope targets the global default.
func (c ConfigScope) Global() bool { return c.Subject == "" }

// ApplySetConfig overwrites the targeted scope's compatibility policy.
func (s *Store) ApplySetConfig(scope ConfigScope, policy compatibility.Mode) {
	if scope.Global() {
		s.globalConfig = policy
		return
	}
	s.subjectConfig[scope.Subject] = policy
}

// ---- reads ----

// SchemaByID returns the canonical text for a previously assigned id.
func (s *Store) SchemaByID(id int64) (string, error) {
	text, ok := s.schemasByID[id]
	if !ok {
		return "", ErrSchemaNotFound
	}
	return text, nil
}

// FingerprintToID returns the schema id sharing fingerprint, if any.
func (s *Store) FingerprintToID(fingerprint string) (int64, bool) {
	id, ok := s.idByFingerprint[fingerprint]
	return id, ok
}

// HasSubject reports whether subject has at least one registered version.
func (s *Store) HasSubject(subject string) bool {
	_, ok := s.subjects[subject]
	return ok
}

// Versions returns the ascending version numbers registered for subject.
func (s *Store) Versions(subject string) ([]int, error) {
	versions, ok := s.subjects[subject]
	if !ok {
		return nil, ErrSubjectNotFound
	}
	out := make([]int, len(versions))
	for i, v := range versions {
		out[i] = v.number
	}
	return out, nil
}

// Version describes one (subject, version_number) entry.
type Version struct {
	Number        int
	SchemaID      int64
	CanonicalText string
}

// GetVersion returns a specific version number for subject, or the
// latest when number is 0 and latest is true.
func (s *Store) GetVersion(subject string, number int, latest bool) (Version, error) {
	versions, ok := s.subjects[subject]
	if !ok {
		return Version{}, ErrSubjectNotFound
	}
	if len(versions) == 0 {
		return Version{}, ErrSubjectNotFound
	}

	var target *version
	if latest {
		v := versions[len(versions)-1]
		target = &v
	} else {
		for _, v := range versions {
			if v.number == number {
				vv := v
				target = &vv
				break
			}
		}
	}
	if target == nil {
		return Version{}, ErrVersionNotFound
	}

	text, ok := s.schemasByID[target.schemaID]
	if !ok {
		return Version{}, ErrSchemaNotFound
	}
	return Version{Number: target.number, SchemaID: target.schemaID, CanonicalText: text}, nil
}

// LookupBySubjectAndFingerprint returns the existing version matching
// fingerprint under subject, if the subject exists and has such a match.
func (s *Store) LookupBySubjectAndFingerprint(subject, fingerprint string) (Version, error) {
	versions, ok := s.subjects[subject]
	if !ok {
		return Version{}, ErrSubjectNotFound
	}
	schemaID, ok := s.idByFingerprint[fingerprint]
	if !ok {
		return Version{}, ErrSchemaNotFound
	}
	for _, v := range versions {
		if v.schemaID == schemaID {
			return Version{Number: v.number, SchemaID: v.schemaID, CanonicalText: s.schemasByID[v.schemaID]}, nil
		}
	}
	return Version{}, ErrSchemaNotFound
}

// Subjects returns subject names in insertion order of first
// registration.
func (s *Store) Subjects() []string {
	out := make([]string, len(s.subjectOrder))
	copy(out, s.subjectOrder)
	return out
}

// GlobalConfig returns the global compatibility policy, which always has
// a value.
func (s *Store) GlobalConfig() compatibility.Mode {
	return s.globalConfig
}

// SubjectConfig returns the per-subject compatibility policy if one has
// been explicitly set.
func (s *Store) SubjectConfig(subject string) (compatibility.Mode, bool) {
	policy, ok := s.subjectConfig[subject]
	return policy, ok
}

// EffectivePolicy returns the per-subject policy if set, otherwise the
// global default.
func (s *Store) EffectivePolicy(subject string) compatibility.Mode {
	if policy, ok := s.subjectConfig[subject]; ok {
		return policy
	}
	return s.globalConfig
}
