package session

import (
	"context"
	"net/http"
	"time"
)

const (
	defaultTTL  = 24 * time.Hour
	rememberTTL = 30 * 24 * time.Hour
)

// Gateway is the login/invalidate/regenerate surface the auth flow uses.
// It owns session lifetimes and cookie issuance; callers never touch the
// backing store directly.
type Gateway struct {
	store      Store
	cookieOpts CookieOptions
	now        func() time.Time
}

func NewGateway(store Store) *Gateway {
	return &Gateway{
		store: store,
		cookieOpts: CookieOptions{
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		now: time.Now,
	}
}

// Login establishes a session for the user and issues the session cookie.
// Remember extends the lifetime from 24 hours to 30 days.
func (g *Gateway) Login(
	ctx context.Context,
	w http.ResponseWriter,
	userID string,
	email string,
	remember bool,
) (*Session, error) {

	sessionID, err := GenerateID()
	if err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if remember {
		ttl = rememberTTL
	}

	now := g.now()
	sess := Session{
		SessionID: sessionID,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := g.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	SetCookie(w, sessionID, sess.ExpiresAt, g.cookieOpts)
	return &sess, nil
}

// Regenerate rotates the session ID while keeping the session data,
// mitigating session fixation. The old entry is removed best-effort after
// the new one exists.
func (g *Gateway) Regenerate(
	ctx context.Context,
	w http.ResponseWriter,
	current *Session,
) (*Session, error) {

	newID, err := GenerateID()
	if err != nil {
		return nil, err
	}

	rotated := *current
	rotated.SessionID = newID

	if err := g.store.Create(ctx, rotated); err != nil {
		return nil, err
	}
	_ = g.store.Delete(ctx, current.SessionID)

	SetCookie(w, newID, rotated.ExpiresAt, g.cookieOpts)
	return &rotated, nil
}

// Invalidate removes the session from the store and clears the cookie.
// Deleting a session that no longer exists is not an error.
func (g *Gateway) Invalidate(
	ctx context.Context,
	w http.ResponseWriter,
	sessionID string,
) error {

	var err error
	if sessionID != "" {
		err = g.store.Delete(ctx, sessionID)
	}

	ClearCookie(w, g.cookieOpts)
	return err
}
