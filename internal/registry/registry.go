// Package registry implements the operation surface (C6) consumed by
// the transport layer: register, lookup, list, getConfig/setConfig,
// testCompatibility. It wires the Canonicalizer, the Compatibility
// Engine, the log-backed state machine, and the coordinator together,
// and is the only place the primary/replica write discipline is
// enforced (spec §4.5, §4.6).
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/streamforge/schema-registry/internal/compatibility"
	"github.com/streamforge/schema-registry/internal/coordinator"
	"github.com/streamforge/schema-registry/internal/schema"
	"github.com/streamforge/schema-registry/internal/statemachine"
	"github.com/streamforge/schema-registry/internal/store"
)

// VersionResult is the shape returned by any operation that resolves to
// one (subject, version) pair.
type VersionResult struct {
	Number        int
	SchemaID      int64
	CanonicalText string
}

// Registry is the Facade (C6).
type Registry struct {
	sm        *statemachine.StateMachine
	parser    schema.Parser
	checker   *compatibility.Checker
	coord     coordinator.Coordinator
	lease     *coordinator.SubjectLease
	forwarder Forwarder
	logger    *slog.Logger
}

// New returns a Registry wired to its collaborators. forwarder may be
// nil only if this node will never run as a replica.
func New(
	sm *statemachine.StateMachine,
	parser schema.Parser,
	checker *compatibility.Checker,
	coord coordinator.Coordinator,
	lease *coordinator.SubjectLease,
	forwarder Forwarder,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sm:        sm,
		parser:    parser,
		checker:   checker,
		coord:     coord,
		lease:     lease,
		forwarder: forwarder,
		logger:    logger,
	}
}

// Register canonicalizes text, deduplicates it against subject's
// existing schemas, runs the compatibility check when needed, and
// commits a new version through the state machine. See spec §4.6.
func (r *Registry) Register(ctx context.Context, subject, text string) (int64, error) {
	parsed, err := r.parser.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	if !r.coord.IsPrimary() {
		return r.forwardRegister(ctx, subject, text)
	}

	release, err := r.lease.Acquire(ctx, subject)
	if err != nil {
		return 0, err
	}
	defer release()

	if !r.coord.IsPrimary() {
		// Role flipped while waiting for the lease; nothing has been
		// written yet, so this fails cleanly rather than writing under a
		// stale primary assumption (spec §4.5).
		return 0, ErrNotPrimary
	}

	var (
		dedupedID     int64
		deduped       bool
		latestText    string
		hasExisting   bool
		effectivePolicy compatibility.Mode
	)
	r.sm.View(func(s *store.Store) {
		effectivePolicy = s.EffectivePolicy(subject)
		if v, err := s.LookupBySubjectAndFingerprint(subject, parsed.Fingerprint()); err == nil {
			dedupedID = v.SchemaID
			deduped = true
			return
		}
		if s.HasSubject(subject) {
			if v, err := s.GetVersion(subject, 0, true); err == nil {
				hasExisting = true
				latestText = v.CanonicalText
			}
		}
	})

	if deduped {
		return dedupedID, nil
	}

	if hasExisting {
		// The candidate is checked as submitted: its canonical form drops
		// field defaults, which the reader side of the check relies on.
		result := r.checker.Check(effectivePolicy, text, latestText)
		if !result.IsCompatible {
			return 0, fmt.Errorf("%w: %s", ErrIncompatibleSchema, strings.Join(result.Messages, "; "))
		}
	}

	commit, err := r.sm.AppendRegisterSchema(ctx, subject, parsed.CanonicalString())
	if err != nil {
		if errors.Is(err, statemachine.ErrLogUnavailable) {
			return 0, fmt.Errorf("%w: %v", ErrLogUnavailable, err)
		}
		return 0, err
	}
	return commit.SchemaID, nil
}

func (r *Registry) forwardRegister(ctx context.Context, subject, text string) (int64, error) {
	if r.forwarder == nil {
		return 0, ErrNotPrimary
	}
	endpoint := r.coord.PrimaryEndpoint()
	if endpoint == "" {
		return 0, ErrNotPrimary
	}
	return r.forwarder.ForwardRegister(ctx, endpoint, subject, text)
}

// GetSchemaByID returns the canonical text for a previously assigned id.
func (r *Registry) GetSchemaByID(id int64) (string, error) {
	var (
		text string
		err  error
	)
	r.sm.View(func(s *store.Store) {
		text, err = s.SchemaByID(id)
	})
	if err != nil {
		return "", mapStoreErr(err)
	}
	return text, nil
}

// GetVersion resolves version_selector ("latest" or a positive integer
// string) against subject.
func (r *Registry) GetVersion(subject, versionSelector string) (VersionResult, error) {
	number, latest, err := ParseVersionSelector(versionSelector)
	if err != nil {
		return VersionResult{}, err
	}

	var (
		v    store.Version
		vErr error
	)
	r.sm.View(func(s *store.Store) {
		v, vErr = s.GetVersion(subject, number, latest)
	})
	if vErr != nil {
		return VersionResult{}, mapStoreErr(vErr)
	}
	return VersionResult{Number: v.Number, SchemaID: v.SchemaID, CanonicalText: v.CanonicalText}, nil
}

// ListSubjects returns subject names in first-registration order.
func (r *Registry) ListSubjects() []string {
	var subjects []string
	r.sm.View(func(s *store.Store) {
		subjects = s.Subjects()
	})
	return subjects
}

// ListVersions returns ascending version numbers for subject.
func (r *Registry) ListVersions(subject string) ([]int, error) {
	var (
		versions []int
		err      error
	)
	r.sm.View(func(s *store.Store) {
		versions, err = s.Versions(subject)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return versions, nil
}

// Lookup canonicalizes text and finds its exact structural match under
// subject, if any.
func (r *Registry) Lookup(subject, text string) (VersionResult, error) {
	parsed, err := r.parser.Parse(text)
	if err != nil {
		return VersionResult{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	var (
		v    store.Version
		vErr error
	)
	r.sm.View(func(s *store.Store) {
		v, vErr = s.LookupBySubjectAndFingerprint(subject, parsed.Fingerprint())
	})
	if vErr != nil {
		return VersionResult{}, mapStoreErr(vErr)
	}
	return VersionResult{Number: v.Number, SchemaID: v.SchemaID, CanonicalText: v.CanonicalText}, nil
}

// TestCompatibility canonicalizes text and checks it against the
// resolved version under subject's effective policy, without mutating
// any state (spec P8).
func (r *Registry) TestCompatibility(subject, text, versionSelector string) (*compatibility.Result, error) {
	if _, err := r.parser.Parse(text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	number, latest, err := ParseVersionSelector(versionSelector)
	if err != nil {
		return nil, err
	}

	var (
		target store.Version
		policy compatibility.Mode
		vErr   error
	)
	r.sm.View(func(s *store.Store) {
		policy = s.EffectivePolicy(subject)
		target, vErr = s.GetVersion(subject, number, latest)
	})
	if vErr != nil {
		return nil, mapStoreErr(vErr)
	}

	return r.checker.Check(policy, text, target.CanonicalText), nil
}

// GetConfig returns the policy configured for scope, where an empty
// subject means the global scope; a subject's lookup does not fall back
// to the global policy. ok is always true for the global
// scope (it always has a value); for a subject, ok is false when no
// per-subject entry has been set (the transport layer maps that to a
// 404, per the specification's resolved design-note asymmetry with
// SetConfig).
func (r *Registry) GetConfig(subject string) (policy compatibility.Mode, ok bool) {
	r.sm.View(func(s *store.Store) {
		if subject == "" {
			policy, ok = s.GlobalConfig(), true
			return
		}
		policy, ok = s.SubjectConfig(subject)
	})
	return policy, ok
}

// SetConfig overwrites the targeted scope's compatibility policy.
// Creating per-subject config for a subject with no schemas is
// permitted and does not add the subject to ListSubjects (spec §9).
func (r *Registry) SetConfig(ctx context.Context, subject string, policy compatibility.Mode) error {
	if !policy.IsValid() {
		return ErrInvalidCompatibility
	}

	if !r.coord.IsPrimary() {
		if r.forwarder == nil {
			return ErrNotPrimary
		}
		endpoint := r.coord.PrimaryEndpoint()
		if endpoint == "" {
			return ErrNotPrimary
		}
		return r.forwarder.ForwardSetConfig(ctx, endpoint, subject, policy)
	}

	err := r.sm.AppendSetConfig(ctx, store.ConfigScope{Subject: subject}, policy)
	if err != nil && errors.Is(err, statemachine.ErrLogUnavailable) {
		return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
	}
	return err
}

// ParseVersionSelector parses a version selector as either the literal
// "latest" or a positive integer, per spec §4.6/§7.
func ParseVersionSelector(raw string) (number int, latest bool, err error) {
	if raw == "latest" {
		return 0, true, nil
	}
	n, convErr := strconv.Atoi(raw)
	if convErr != nil || n <= 0 {
		return 0, false, ErrInvalidVersion
	}
	return n, false, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrSubjectNotFound):
		return ErrSubjectNotFound
	case errors.Is(err, store.ErrSchemaNotFound):
		return ErrSchemaNotFound
	case errors.Is(err, store.ErrVersionNotFound):
		return ErrVersionNotFound
	default:
		return err
	}
}
