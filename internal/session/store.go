package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. It stores identity
// pointers only, never auth decisions.
type Session struct {
	SessionID string    // unique session identifier
	UserID    string    // references the local user record
	Email     string    // email of the authenticated user
	CreatedAt time.Time // when the session was first established
	ExpiresAt time.Time // absolute expiry time
}

// Store defines how sessions are stored and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
