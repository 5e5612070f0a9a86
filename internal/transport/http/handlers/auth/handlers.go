package authhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/requestctx"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

// Accounts is the slice of the auth service the handlers drive.
type Accounts interface {
	SignUp(ctx context.Context, email, password string, role auth.Role) (string, error)
	SignIn(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	SignOut(ctx context.Context, session auth.Session) error
	SetupMFA(ctx context.Context, session auth.Session) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, session auth.Session, code string) error
	DisableMFA(ctx context.Context, session auth.Session, code string) error
}

type Handler struct {
	Accounts    Accounts
	Resolver    *access.Resolver
	AllowSignup bool
	Log         *zap.Logger
}

func NewHandler(accounts Accounts, resolver *access.Resolver, allowSignup bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Accounts: accounts, Resolver: resolver, AllowSignup: allowSignup, Log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type accountView struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role,omitempty"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Required("email", payload.Email, "email is required")
	validator.Required("password", payload.Password, "password is required")
	if validator.Reject(w, requestID) {
		return
	}

	session, err := h.Accounts.SignIn(r.Context(), payload.Email, payload.Password, payload.MFACode)
	if err != nil {
		h.failAuth(w, err, requestID)
		return
	}

	role, resolved := h.Resolver.Resolve(r.Context(), session)
	redirect := access.RedirectLogin.Target()
	if resolved {
		redirect = role.Home()
	}
	api.Success(w, map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"account":   accountView{ID: session.AccountID, Email: session.Email, Role: role},
		"redirect":  redirect,
	}, requestID)
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if !h.AllowSignup {
		api.Fail(w, http.StatusNotFound, "signup_disabled", "self sign-up is disabled", requestID)
		return
	}
	var payload signupRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Required("email", payload.Email, "email is required")
	validator.Required("password", payload.Password, "password is required")
	validator.Required("role", payload.Role, "role is required")
	validator.Enum("role", payload.Role, []string{string(auth.RoleAdmin), string(auth.RoleEmployee)}, "role must be admin or employee")
	if validator.Reject(w, requestID) {
		return
	}

	id, err := h.Accounts.SignUp(r.Context(), strings.TrimSpace(payload.Email), payload.Password, auth.Role(strings.ToLower(payload.Role)))
	if err != nil {
		h.failAuth(w, err, requestID)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if session, ok := middleware.GetSession(r.Context()); ok {
		if err := h.Accounts.SignOut(r.Context(), session); err != nil {
			h.Log.Warn("logout session revoke failed", zap.String("accountId", session.AccountID), zap.Error(err))
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

// HandleSession reports the caller and the role the guard resolved.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", requestID)
		return
	}
	role, _ := middleware.GetRole(r.Context())
	api.Success(w, map[string]any{
		"account":   accountView{ID: session.AccountID, Email: session.Email, Role: role},
		"expiresAt": session.ExpiresAt,
		"home":      role.Home(),
	}, requestID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", requestID)
		return
	}
	setup, err := h.Accounts.SetupMFA(r.Context(), session)
	if err != nil {
		h.failAuth(w, err, requestID)
		return
	}
	api.Success(w, setup, requestID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Accounts.EnableMFA, "enabled")
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Accounts.DisableMFA, "disabled")
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, toggle func(context.Context, auth.Session, string) error, status string) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", requestID)
		return
	}
	var payload mfaCodeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Required("code", payload.Code, "code is required")
	if validator.Reject(w, requestID) {
		return
	}
	if err := toggle(r.Context(), session, payload.Code); err != nil {
		h.failAuth(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": status}, requestID)
}

func (h *Handler) failAuth(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", requestID)
	case errors.Is(err, auth.ErrMFANotSetUp):
		api.Fail(w, http.StatusBadRequest, "mfa_not_setup", "mfa setup required", requestID)
	case errors.Is(err, auth.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
	case errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), requestID)
	case errors.Is(err, auth.ErrUnknownRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", "role must be admin or employee", requestID)
	default:
		h.Log.Error("auth request failed", zap.String("requestId", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "auth_error", "request failed", requestID)
	}
}
