package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/recordshelf/scrobble-gateway/internal/store"
)

// ErrNotFound is returned when a record is absent, expired, or
// unreadable. Store failures collapse into this error so callers fail
// closed.
var ErrNotFound = errors.New("session not found")

// Auth-state records share the session namespace under a key prefix.
const authStatePrefix = "auth_state_"

// Manager persists session and auth-state records through a Store.
type Manager struct {
	store store.Store
}

// NewManager creates a Manager over the given store.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// NewSessionID generates an opaque random session identifier.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewStateID generates the random state value keying an auth-state
// record. Never reused as a session id.
func NewStateID() string {
	return uuid.NewString()
}

// GetSession loads a session record. Expired records are deleted on
// detection and reported as absent.
func (m *Manager) GetSession(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrNotFound
	}

	if record.Expired(time.Now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}

	return &record, nil
}

// PutSession stores a record under its session id. The store-level TTL
// mirrors the record's semantic TTL as a hard-expiry backstop.
func (m *Manager) PutSession(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}
	if err := m.store.Put(ctx, record.ID, data, record.TTL()); err != nil {
		return fmt.Errorf("storing session record: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// PutAuthState stores an auth-state record under its state value.
func (m *Manager) PutAuthState(ctx context.Context, stateID string, state *AuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling auth state: %w", err)
	}
	if err := m.store.Put(ctx, authStatePrefix+stateID, data, PendingTTL); err != nil {
		return fmt.Errorf("storing auth state: %w", err)
	}
	return nil
}

// ConsumeAuthState loads and deletes an auth-state record in one shot.
// Absent, expired or unreadable state reports ErrNotFound; a consumed
// state cannot be replayed.
func (m *Manager) ConsumeAuthState(ctx context.Context, stateID string) (*AuthState, error) {
	if stateID == "" {
		return nil, ErrNotFound
	}

	key := authStatePrefix + stateID
	data, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, ErrNotFound
	}

	var state AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		_ = m.store.Delete(ctx, key)
		return nil, ErrNotFound
	}

	if state.Expired(time.Now()) {
		_ = m.store.Delete(ctx, key)
		return nil, ErrNotFound
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("consuming auth state: %w", err)
	}

	return &state, nil
}
