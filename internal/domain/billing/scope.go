package billing

import (
	"fmt"

	"github.com/google/uuid"
)

// ScopeKind identifies the kind of billable object an invoice item points to.
// Kinds are registered at process start together with their registrator;
// the engine itself never enumerates them.
type ScopeKind string

// Scope is a reference to a billable object of some registered kind.
// A zero scope marks an invoice item whose source has been deleted; the
// item's denormalized details remain the only record of what was billed.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// IsZero reports whether the scope references nothing
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == uuid.Nil
}

// String returns a human-readable scope reference
func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.Kind, s.ID)
}
