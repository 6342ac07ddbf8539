// Package session defines the gateway's persisted session state: the
// record linking a browser session to a provider credential, and the
// short-lived state record correlating an auth callback to it.
package session

import (
	"time"

	"github.com/goccy/go-json"
)

// State is the lifecycle stage of a stored record.
type State string

const (
	// StatePending marks a session created at login initiation, before
	// the provider callback completes.
	StatePending State = "pending"

	// StateAuthPending marks the state record correlating a provider
	// callback to its pending session.
	StateAuthPending State = "auth_pending"

	// StateAuthenticated marks a session holding a provider credential.
	StateAuthenticated State = "authenticated"
)

const (
	// SessionTTL bounds the life of an authenticated session.
	SessionTTL = 30 * 24 * time.Hour

	// PendingTTL bounds the life of pending sessions and auth-state
	// records; an abandoned login simply ages out.
	PendingTTL = 10 * time.Minute
)

// Record is one stored session. A record is either pending (no
// credential) or authenticated (username and session key both set);
// it is never partially authenticated.
type Record struct {
	Type         State           `json:"type"`
	ID           string          `json:"sessionId"`
	Username     string          `json:"username,omitempty"`
	SessionKey   string          `json:"sessionKey,omitempty"`
	UserInfo     json.RawMessage `json:"userInfo,omitempty"`
	UserAvatar   string          `json:"userAvatar,omitempty"`
	LastAlbumArt string          `json:"lastAlbumArt,omitempty"`
	Created      int64           `json:"created"` // epoch milliseconds
}

// Authenticated reports whether the record holds a usable credential.
// Both username and session key are required; a record with one but not
// the other is treated as unauthenticated.
func (r *Record) Authenticated() bool {
	return r.Type == StateAuthenticated && r.Username != "" && r.SessionKey != ""
}

// TTL returns the record's semantic lifetime based on its state.
func (r *Record) TTL() time.Duration {
	switch r.Type {
	case StateAuthenticated:
		return SessionTTL
	case StatePending, StateAuthPending:
		return PendingTTL
	default:
		return PendingTTL
	}
}

// Expired reports whether the record's age exceeds its TTL at now.
func (r *Record) Expired(now time.Time) bool {
	created := time.UnixMilli(r.Created)
	return now.Sub(created) > r.TTL()
}

// AuthState correlates a provider callback to its pending session. It
// is keyed by a random state value distinct from the session id, so the
// callback can be verified even when it arrives in a different tab with
// no session cookie.
type AuthState struct {
	Type           State  `json:"type"`
	SessionID      string `json:"sessionId"`
	RedirectOrigin string `json:"redirectOrigin"`
	IsEmbed        bool   `json:"isEmbed"`
	Created        int64  `json:"created"` // epoch milliseconds
}

// Expired reports whether the auth state has passed its 10-minute window.
func (s *AuthState) Expired(now time.Time) bool {
	created := time.UnixMilli(s.Created)
	return now.Sub(created) > PendingTTL
}
