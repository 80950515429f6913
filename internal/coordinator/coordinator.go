// Package coordinator manages primary/replica roles and per-subject
// write serialization (spec §4.5). Primary election itself is an
// external collaborator (out of scope); this package exposes the
// primary/replica status the Facade needs and notifies it of role
// changes, and provides the per-subject lease used to serialize
// concurrent registrations against the same subject on the primary.
package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// Role is the node's current position in the single-writer protocol.
type Role string

const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

// Coordinator reports this node's role and the primary's endpoint, and
// notifies registered listeners on role change.
type Coordinator interface {
	NodeID() string
	IsPrimary() bool
	PrimaryEndpoint() string
	OnRoleChange(fn func(Role))
}

// StaticCoordinator is a Coordinator whose role is set directly by an
// operator or a simple external watcher (e.g. a config reload or a
// signal), rather than by a full consensus protocol — the kind of
// primary-election delegate spec §4.5 assumes but leaves unspecified.
type StaticCoordinator struct {
	mu              sync.RWMutex
	nodeID          string
	role            Role
	primaryEndpoint string
	listeners       []func(Role)
}

// NewStaticCoordinator returns a StaticCoordinator starting in role,
// reporting primaryEndpoint as the current primary's address.
func NewStaticCoordinator(role Role, primaryEndpoint string) *StaticCoordinator {
	return &StaticCoordinator{
		nodeID:          uuid.NewString(),
		role:            role,
		primaryEndpoint: primaryEndpoint,
	}
}

// NodeID returns this node's generated identifier.
func (c *StaticCoordinator) NodeID() string {
	return c.nodeID
}

// IsPrimary reports whether this node currently holds the primary role.
func (c *StaticCoordinator) IsPrimary() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role == RolePrimary
}

// PrimaryEndpoint returns the address replicas should forward writes to.
func (c *StaticCoordinator) PrimaryEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primaryEndpoint
}

// OnRoleChange registers fn to be invoked, with the new role, whenever
// Promote or Demote changes this node's role.
func (c *StaticCoordinator) OnRoleChange(fn func(Role)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Promote makes this node the primary.
func (c *StaticCoordinator) Promote(selfEndpoint string) {
	c.setRole(RolePrimary, selfEndpoint)
}

// Demote makes this node a replica forwarding to primaryEndpoint.
func (c *StaticCoordinator) Demote(primaryEndpoint string) {
	c.setRole(RoleReplica, primaryEndpoint)
}

func (c *StaticCoordinator) setRole(role Role, endpoint string) {
	c.mu.Lock()
	c.role = role
	c.primaryEndpoint = endpoint
	listeners := append([]func(Role){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(role)
	}
}
