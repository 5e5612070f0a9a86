package middleware

import (
	"context"
	"net/http"
	"strings"

	"staffdesk/internal/domain/auth"
)

type SessionSource interface {
	CurrentSession(ctx context.Context, token string) (auth.Session, error)
}

// Authenticate attaches the session named by a bearer token to the request
// context. Requests without a valid token continue anonymously; the guard
// decides what they may reach.
func Authenticate(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, err := sessions.CurrentSession(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

func BearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func GetSession(ctx context.Context) (auth.Session, bool) {
	return auth.SessionFrom(ctx)
}
