package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/auth"
)

type stubSessions map[string]auth.Session

func (s stubSessions) CurrentSession(_ context.Context, token string) (auth.Session, error) {
	session, ok := s[token]
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}
	return session, nil
}

type stubRoles map[string]auth.Role

func (s stubRoles) RoleOf(_ context.Context, id string) (auth.Role, error) {
	role, ok := s[id]
	if !ok {
		return "", auth.ErrRoleNotFound
	}
	return role, nil
}

func TestAuthenticateSetsSession(t *testing.T) {
	sessions := stubSessions{"good": {AccountID: "a1", Email: "a@example.com"}}
	handler := Authenticate(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := GetSession(r.Context())
		if !ok {
			t.Fatal("expected session in context")
		}
		if session.AccountID != "a1" {
			t.Fatalf("unexpected session: %+v", session)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthenticateIgnoresBadTokens(t *testing.T) {
	handler := Authenticate(stubSessions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r.Context()); ok {
			t.Fatal("did not expect session in context")
		}
	}))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer unknown", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestRequireRoles(t *testing.T) {
	sessions := stubSessions{
		"admin":    {AccountID: "a1"},
		"employee": {AccountID: "e1"},
		"orphan":   {AccountID: "x1"},
	}
	resolver := access.NewResolver(stubRoles{"a1": auth.RoleAdmin, "e1": auth.RoleEmployee}, nil, nil)

	tests := []struct {
		name     string
		token    string
		status   int
		redirect string
	}{
		{name: "anonymous", status: http.StatusUnauthorized, redirect: "/login"},
		{name: "admin", token: "admin", status: http.StatusNoContent},
		{name: "wrong role", token: "employee", status: http.StatusForbidden, redirect: "/"},
		{name: "no profile", token: "orphan", status: http.StatusUnauthorized, redirect: "/login"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			handler := Authenticate(sessions)(RequireRoles(resolver, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				if role, ok := GetRole(r.Context()); !ok || role != auth.RoleAdmin {
					t.Fatalf("expected admin role in context, got %q", role)
				}
				w.WriteHeader(http.StatusNoContent)
			})))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.redirect == "" {
				return
			}
			if reached {
				t.Fatal("protected handler must not run")
			}
			var body struct {
				Error struct {
					Details map[string]string `json:"details"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Details["redirect"] != tc.redirect {
				t.Fatalf("expected redirect %q, got %q", tc.redirect, body.Error.Details["redirect"])
			}
		})
	}
}

func TestRequireRolesFailsClosedOnLookupError(t *testing.T) {
	resolver := access.NewResolver(failingRoles{}, nil, nil)
	handler := Authenticate(stubSessions{"t": {AccountID: "a1"}})(RequireRoles(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redirect":"/login"`) {
		t.Fatalf("expected login redirect, got %s", rec.Body.String())
	}
}

type failingRoles struct{}

func (failingRoles) RoleOf(context.Context, string) (auth.Role, error) {
	return "", errors.New("db down")
}
