package domain

import "time"

// ============================================================
// Identity, roles and session state
// ============================================================

// Role is the authorization level stored in the admins collection.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// NormalizeRole maps the raw role string of an existing authorization
// record to a known role. Unknown or empty values default to editor.
func NormalizeRole(raw string) Role {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleEditor
	}
}

// Identity is what the identity provider knows about a signed-in user.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// RoleRecord is the authorization record keyed by identity id.
type RoleRecord struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// Principal is a resolved, authorized identity.
type Principal struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"displayName,omitempty"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// SessionState is the state of the authorization gate.
type SessionState string

const (
	SessionUnresolved                SessionState = "UNRESOLVED"
	SessionAnonymous                 SessionState = "ANONYMOUS"
	SessionAuthenticatedUnauthorized SessionState = "AUTHENTICATED_UNAUTHORIZED"
	SessionAuthorized                SessionState = "AUTHORIZED"
)

// Scope is the read-visibility level applied to a catalog subscription.
type Scope string

const (
	ScopeNone       Scope = ""
	ScopePublic     Scope = "PUBLIC"
	ScopeAuthorized Scope = "AUTHORIZED"
)

// ============================================================
// Admin session: Request / Response types
// ============================================================

// LoginRequest is the body for POST /v1/admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /v1/admin/login.
type LoginResponse struct {
	SessionToken string     `json:"sessionToken"`
	ExpiresIn    int        `json:"expiresIn"`
	User         *Principal `json:"user"`
}

// SessionView is returned by GET /v1/admin/session.
type SessionView struct {
	State   SessionState `json:"state"`
	Scope   Scope        `json:"scope"`
	User    *Principal   `json:"user,omitempty"`
	IsAdmin bool         `json:"isAdmin"`
	Error   string       `json:"error,omitempty"`
}
