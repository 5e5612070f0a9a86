package authhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/transport/http/api"
)

type fakeAccounts struct {
	session   auth.Session
	signInErr error
	signUpErr error
	signedUp  []string
	signedOut []string
	toggleErr error
}

func (f *fakeAccounts) SignUp(_ context.Context, email, _ string, role auth.Role) (string, error) {
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	f.signedUp = append(f.signedUp, email+":"+role.String())
	return "acct-new", nil
}

func (f *fakeAccounts) SignIn(context.Context, string, string, string) (auth.Session, error) {
	if f.signInErr != nil {
		return auth.Session{}, f.signInErr
	}
	return f.session, nil
}

func (f *fakeAccounts) SignOut(_ context.Context, session auth.Session) error {
	f.signedOut = append(f.signedOut, session.AccountID)
	return nil
}

func (f *fakeAccounts) SetupMFA(context.Context, auth.Session) (auth.MFASetup, error) {
	return auth.MFASetup{Secret: "SECRET", OTPAuthURL: "otpauth://totp/Staffdesk"}, nil
}

func (f *fakeAccounts) EnableMFA(context.Context, auth.Session, string) error  { return f.toggleErr }
func (f *fakeAccounts) DisableMFA(context.Context, auth.Session, string) error { return f.toggleErr }

type roleMap map[string]auth.Role

func (m roleMap) RoleOf(_ context.Context, id string) (auth.Role, error) {
	role, ok := m[id]
	if !ok {
		return "", auth.ErrRoleNotFound
	}
	return role, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (api.Envelope, map[string]any) {
	t.Helper()
	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data, _ := env.Data.(map[string]any)
	return env, data
}

func TestHandleLoginRedirectsToRoleHome(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		want      string
	}{
		{name: "admin", accountID: "a1", want: "/admin"},
		{name: "employee", accountID: "e1", want: "/employee"},
		{name: "no role", accountID: "x1", want: "/login"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &fakeAccounts{session: auth.Session{AccountID: tc.accountID, Email: "u@example.com", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}}
			resolver := access.NewResolver(roleMap{"a1": auth.RoleAdmin, "e1": auth.RoleEmployee}, nil, nil)
			h := NewHandler(accounts, resolver, false, nil)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"u@example.com","password":"s3cretpass"}`))
			rec := httptest.NewRecorder()
			h.HandleLogin(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			_, data := decode(t, rec)
			if data["redirect"] != tc.want {
				t.Fatalf("expected redirect %q, got %v", tc.want, data["redirect"])
			}
			if data["token"] != "tok" {
				t.Fatalf("expected token in response, got %v", data["token"])
			}
		})
	}
}

func TestHandleLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest, wantErr: "invalid_payload"},
		{name: "unknown field", body: `{"email":"a","password":"b","tenant":"x"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_payload"},
		{name: "missing password", body: `{"email":"a@example.com"}`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "wrong password", body: `{"email":"a@example.com","password":"x"}`, err: auth.ErrInvalidCredentials, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "mfa required", body: `{"email":"a@example.com","password":"x"}`, err: auth.ErrMFARequired, wantCode: http.StatusUnauthorized, wantErr: "mfa_required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&fakeAccounts{signInErr: tc.err}, access.NewResolver(roleMap{}, nil, nil), false, nil)
			rec := httptest.NewRecorder()
			h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body)))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			env, _ := decode(t, rec)
			if env.Error == nil || env.Error.Code != tc.wantErr {
				t.Fatalf("expected error code %q, got %+v", tc.wantErr, env.Error)
			}
		})
	}
}

func TestHandleSignup(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := NewHandler(&fakeAccounts{}, nil, false, nil)
		rec := httptest.NewRecorder()
		h.HandleSignup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{}`)))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("bad role", func(t *testing.T) {
		h := NewHandler(&fakeAccounts{}, nil, true, nil)
		rec := httptest.NewRecorder()
		h.HandleSignup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@example.com","password":"s3cretpass","role":"owner"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		h := NewHandler(&fakeAccounts{signUpErr: auth.ErrEmailTaken}, nil, true, nil)
		rec := httptest.NewRecorder()
		h.HandleSignup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@example.com","password":"s3cretpass","role":"employee"}`)))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("created", func(t *testing.T) {
		accounts := &fakeAccounts{}
		h := NewHandler(accounts, nil, true, nil)
		rec := httptest.NewRecorder()
		h.HandleSignup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@example.com","password":"s3cretpass","role":"Admin"}`)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(accounts.signedUp) != 1 || accounts.signedUp[0] != "a@example.com:admin" {
			t.Fatalf("unexpected sign-ups: %v", accounts.signedUp)
		}
	})
}

func TestHandleLogoutRevokesSession(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, nil, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(auth.WithSession(req.Context(), auth.Session{AccountID: "a1"}))
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(accounts.signedOut) != 1 || accounts.signedOut[0] != "a1" {
		t.Fatalf("expected session a1 revoked, got %v", accounts.signedOut)
	}
}

func TestHandleMFAToggle(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "enabled", body: `{"code":"123456"}`, wantCode: http.StatusOK},
		{name: "missing code", body: `{"code":""}`, wantCode: http.StatusBadRequest},
		{name: "not set up", body: `{"code":"123456"}`, err: auth.ErrMFANotSetUp, wantCode: http.StatusBadRequest},
		{name: "wrong code", body: `{"code":"000000"}`, err: auth.ErrMFAInvalid, wantCode: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&fakeAccounts{toggleErr: tc.err}, nil, false, nil)
			req := httptest.NewRequest(http.MethodPost, "/auth/mfa/enable", strings.NewReader(tc.body))
			req = req.WithContext(auth.WithSession(req.Context(), auth.Session{AccountID: "a1"}))
			rec := httptest.NewRecorder()
			h.HandleMFAEnable(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleMFASetupRequiresSession(t *testing.T) {
	h := NewHandler(&fakeAccounts{}, nil, false, nil)
	rec := httptest.NewRecorder()
	h.HandleMFASetup(rec, httptest.NewRequest(http.MethodPost, "/auth/mfa/setup", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
