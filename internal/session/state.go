package session

import (
	"time"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
)

// Phase is the session lifecycle position.
type Phase int

const (
	PhaseBootstrapping Phase = iota
	PhaseUsingCache
	PhaseVerifying
	PhaseReady
	PhaseInvalidated
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseUsingCache:
		return "using_cache"
	case PhaseVerifying:
		return "verifying"
	case PhaseReady:
		return "ready"
	case PhaseInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends a bootstrap.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseInvalidated
}

// State is a snapshot of the session. The session is authenticated iff
// CurrentUser is non-nil; Token may be set before CurrentUser is
// confirmed.
type State struct {
	Phase           Phase
	CurrentUser     *authz.User
	Token           string
	IsLoading       bool
	LastValidatedAt time.Time
	ClassicSession  bool

	// Cause is why the session was invalidated, if it was.
	Cause error
}

// IsAuthenticated reports whether a user is present.
func (s State) IsAuthenticated() bool {
	return s.CurrentUser != nil
}

// IsAdmin is derived from the current roles on every call.
func (s State) IsAdmin() bool {
	return authz.IsAdmin(s.CurrentUser)
}
