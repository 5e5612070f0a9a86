package auth

import (
	"context"
	"time"
)

// Session is the authenticated identity handle handed to every operation
// that acts on behalf of a caller.
type Session struct {
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"-"`
	sessionID string
}

func (s Session) Active() bool {
	return s.AccountID != ""
}

type ctxKey struct{}

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, session)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || !session.Active() {
		return Session{}, false
	}
	return session, true
}
