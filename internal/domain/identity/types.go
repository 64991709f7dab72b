package identity

// Package identity contains domain-level types for the session/profile
// reconciliation subsystem. It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and caching.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Identity represents the authenticated principal returned by the identity
// provider. Adapters map provider-specific claims into this shape.
// FullName and Phone are provider metadata and may be empty.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Session is a time-bounded proof of authentication tied to a user identifier.
// Token fields are carried verbatim and never interpreted by the core.
type Session struct {
	UserID       string    `json:"user_id"`
	User         Identity  `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Profile is the application-owned record extending an identity with role and
// contact data. One profile per identity, created lazily on first successful
// login if absent.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	Phone     *string   `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileDraft is the insert shape for a profile synthesized on first login.
// ID must equal the identity ID.
type ProfileDraft struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Role     Role
}

// DraftFromIdentity builds the profile draft synthesized when a user exists in
// the identity provider but has no profile row yet. Display name and phone
// come from provider metadata, defaulting to empty strings.
func DraftFromIdentity(user Identity) ProfileDraft {
	return ProfileDraft{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
		Role:     RoleCustomer,
	}
}

// Snapshot is the reconciled identity: the single value this subsystem
// produces for its consumers.
//
// Invariants maintained by the state store:
//   - IsAuthenticated == (User != nil), recomputed atomically on every write.
//   - Profile == nil whenever User == nil.
//   - IsLoading is true from process start until the first bootstrap
//     resolution and is never re-entered by later events.
type Snapshot struct {
	User            *Identity
	Profile         *Profile
	IsAuthenticated bool
	IsLoading       bool
}

// IsAdmin reports whether the snapshot holds an authenticated admin identity.
// A stale profile on a signed-out snapshot never grants admin.
func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated && s.Profile != nil && s.Profile.Role == RoleAdmin
}

// IsCustomer reports whether the snapshot holds an authenticated customer
// identity. Authenticated-with-unknown-role is neither admin nor customer.
func (s Snapshot) IsCustomer() bool {
	return s.IsAuthenticated && s.Profile != nil && s.Profile.Role == RoleCustomer
}

// CachedIdentity is the slice of a snapshot that survives restarts.
// IsLoading is deliberately absent; it always resets on rehydration.
type CachedIdentity struct {
	User            *Identity `json:"user"`
	Profile         *Profile  `json:"profile"`
	IsAuthenticated bool      `json:"is_authenticated"`
}
