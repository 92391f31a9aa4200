package auth

import (
	"errors"

	"github.com/valhalla/console/internal/rbac"
)

// ErrNotAuthenticated is returned by operations that need a live session.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Status is the phase of the session state machine.
type Status int

const (
	// StatusLoading is the initial phase while a persisted token is restored.
	StatusLoading Status = iota
	// StatusAuthenticated holds a validated identity.
	StatusAuthenticated
	// StatusUnauthenticated means there is no usable token.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Cause names the operation that produced a State.
type Cause string

const (
	CauseInit    Cause = ""
	CauseRestore Cause = "restore"
	CauseLogin   Cause = "login"
	CauseLogout  Cause = "logout"
	CauseUpdate  Cause = "update"
)

// Identity is the authenticated principal.
type Identity struct {
	UserID   string
	Username string
	RoleID   rbac.Role
	RoleName string
}

// IdentityPatch carries the fields UpdateUser merges; nil fields are kept.
type IdentityPatch struct {
	UserID   *string    `json:"userId,omitempty"`
	Username *string    `json:"username,omitempty"`
	RoleID   *rbac.Role `json:"roleId,omitempty"`
	RoleName *string    `json:"roleName,omitempty"`
}

// overlay returns p with the non-nil fields of next applied on top.
func (p IdentityPatch) overlay(next IdentityPatch) IdentityPatch {
	if next.UserID != nil {
		p.UserID = next.UserID
	}
	if next.Username != nil {
		p.Username = next.Username
	}
	if next.RoleID != nil {
		p.RoleID = next.RoleID
	}
	if next.RoleName != nil {
		p.RoleName = next.RoleName
	}
	return p
}

func (id Identity) merge(p IdentityPatch) Identity {
	if p.UserID != nil {
		id.UserID = *p.UserID
	}
	if p.Username != nil {
		id.Username = *p.Username
	}
	if p.RoleID != nil {
		id.RoleID = *p.RoleID
	}
	if p.RoleName != nil {
		id.RoleName = *p.RoleName
	}
	return id
}

// State is an immutable snapshot of the session. Identity is the zero value
// unless Status is StatusAuthenticated.
type State struct {
	Status   Status
	Identity Identity
	Error    string
	Cause    Cause
}

// Authenticated reports whether the snapshot holds a validated identity.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Role returns the current role, or rbac.RoleNone without a session.
func (s State) Role() rbac.Role {
	if !s.Authenticated() {
		return rbac.RoleNone
	}
	return s.Identity.RoleID
}

// Subject projects the snapshot onto what route guards decide on.
func (s State) Subject() rbac.Subject {
	return rbac.Subject{
		Loading:       s.Status == StatusLoading,
		Authenticated: s.Authenticated(),
		Role:          s.Role(),
	}
}

// Result reports the outcome of a stateless password operation.
type Result struct {
	OK      bool
	Message string
}
