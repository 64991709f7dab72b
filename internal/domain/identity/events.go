package identity

import "fmt"

// EventKind discriminates identity provider lifecycle events.
type EventKind string

const (
	// EventBootstrapped is emitted once when the provider finishes loading
	// any existing session on startup.
	EventBootstrapped EventKind = "BOOTSTRAPPED"
	// EventSignedIn is emitted after a successful sign-in.
	EventSignedIn EventKind = "SIGNED_IN"
	// EventSignedOut is emitted after sign-out or session invalidation.
	EventSignedOut EventKind = "SIGNED_OUT"
	// EventTokenRefreshed is emitted when the provider rotates tokens for a
	// live session.
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is the tagged variant delivered on the provider's live event stream.
// Session is nil for sign-out and for degenerate events without a session.
type Event struct {
	Kind    EventKind
	Session *Session
}

func (e Event) String() string {
	if e.Session == nil {
		return fmt.Sprintf("%s (no session)", e.Kind)
	}
	return fmt.Sprintf("%s user=%s", e.Kind, e.Session.UserID)
}
