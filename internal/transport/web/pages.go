package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v4"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
)

const (
	deletedMessage      = "Employee deleted successfully!"
	deleteFailedMessage = "Failed to delete employee."
	roleMissingMessage  = "Role not found for user."
)

func (c *Console) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session, ok := c.currentSession(r); ok {
		if role, resolved := c.resolver.Resolve(r.Context(), session); resolved {
			http.Redirect(w, r, role.Home(), http.StatusSeeOther)
			return
		}
	}
	c.render(w, r, http.StatusOK, "login.html", pongo2.Context{"allowSignup": c.allowSignup})
}

func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	page := pongo2.Context{"allowSignup": c.allowSignup, "email": email}

	if email == "" || password == "" {
		page["error"] = "Email and password are required."
		c.render(w, r, http.StatusBadRequest, "login.html", page)
		return
	}

	session, err := c.accounts.SignIn(r.Context(), email, password, r.PostFormValue("mfaCode"))
	if err != nil {
		msg, needsCode := loginError(err)
		if msg == "" {
			c.log.Error("console sign-in failed", zap.Error(err))
			msg = "Sign in failed. Please try again."
		}
		page["error"], page["mfa"] = msg, needsCode
		c.render(w, r, http.StatusUnauthorized, "login.html", page)
		return
	}
	c.finishSignIn(w, r, session, page)
}

func (c *Console) finishSignIn(w http.ResponseWriter, r *http.Request, session auth.Session, page pongo2.Context) {
	role, resolved := c.resolver.Resolve(r.Context(), session)
	if !resolved {
		if err := c.accounts.SignOut(r.Context(), session); err != nil {
			c.log.Warn("sign out after missing role failed", zap.String("accountId", session.AccountID), zap.Error(err))
		}
		page["error"] = roleMissingMessage
		c.render(w, r, http.StatusForbidden, "login.html", page)
		return
	}
	if err := c.storeToken(w, r, session.Token); err != nil {
		c.log.Error("save session cookie failed", zap.Error(err))
		page["error"] = "Sign in failed. Please try again."
		c.render(w, r, http.StatusInternalServerError, "login.html", page)
		return
	}
	http.Redirect(w, r, role.Home(), http.StatusSeeOther)
}

func loginError(err error) (string, bool) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid login credentials.", false
	case errors.Is(err, auth.ErrMFARequired):
		return "Enter the code from your authenticator app.", true
	case errors.Is(err, auth.ErrMFAInvalid):
		return "Invalid authentication code.", true
	}
	return "", false
}

func (c *Console) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if !c.allowSignup {
		http.NotFound(w, r)
		return
	}
	c.render(w, r, http.StatusOK, "signup.html", pongo2.Context{"role": string(auth.RoleEmployee), "roles": names(auth.Roles)})
}

// handleSignup provisions an account with the chosen role and signs it in.
func (c *Console) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !c.allowSignup {
		http.NotFound(w, r)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	page := pongo2.Context{"email": email, "role": r.PostFormValue("role"), "roles": names(auth.Roles)}

	role, err := auth.ParseRole(r.PostFormValue("role"))
	if err != nil {
		page["error"] = "Choose a valid role."
		c.render(w, r, http.StatusBadRequest, "signup.html", page)
		return
	}
	if _, err := c.accounts.SignUp(r.Context(), email, password, role); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			page["error"] = "That email is already registered."
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCredentials):
			page["error"] = "Enter an email and a password of at least 8 characters."
		default:
			c.log.Error("console sign-up failed", zap.Error(err))
			page["error"] = "Sign up failed. Please try again."
		}
		c.render(w, r, http.StatusBadRequest, "signup.html", page)
		return
	}

	session, err := c.accounts.SignIn(r.Context(), email, password, "")
	if err != nil {
		c.log.Error("sign in after sign-up failed", zap.Error(err))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	c.finishSignIn(w, r, session, page)
}

func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session, ok := c.currentSession(r); ok {
		if err := c.accounts.SignOut(r.Context(), session); err != nil {
			c.log.Warn("console sign out failed", zap.String("accountId", session.AccountID), zap.Error(err))
		}
	}
	c.clearToken(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (c *Console) handleAdmin(w http.ResponseWriter, r *http.Request) {
	session, role := c.caller(r)
	records, err := c.records.List(r.Context(), session, role)
	if err != nil {
		c.log.Error("list employees failed", zap.String("accountId", session.AccountID), zap.Error(err))
		c.renderAdmin(w, r, http.StatusInternalServerError, employees.Roster{}, "Failed to load employees.")
		return
	}
	c.renderAdmin(w, r, http.StatusOK, employees.NewRoster(records), "")
}

func (c *Console) renderAdmin(w http.ResponseWriter, r *http.Request, status int, roster employees.Roster, errMsg string) {
	session, _ := c.caller(r)
	page := pongo2.Context{
		"account":   session,
		"employees": roster.Entries,
		"count":     roster.Len(),
		"error":     errMsg,
	}
	if inst, ok := c.wizards.Current(session); ok {
		page["openWizard"] = inst.ID
	}
	c.render(w, r, status, "admin.html", page)
}

func (c *Console) handleEmployeeDetail(w http.ResponseWriter, r *http.Request) {
	session, role := c.caller(r)
	record, err := c.records.Get(r.Context(), session, role, chi.URLParam(r, "employeeID"))
	if err != nil {
		c.missingRecord(w, r, err)
		return
	}
	c.render(w, r, http.StatusOK, "detail.html", pongo2.Context{"employee": record, "admin": true})
}

func (c *Console) handleProfilePDF(w http.ResponseWriter, r *http.Request) {
	session, role := c.caller(r)
	record, err := c.records.Get(r.Context(), session, role, chi.URLParam(r, "employeeID"))
	if err != nil {
		c.missingRecord(w, r, err)
		return
	}
	c.writePDF(w, record)
}

type deleterFunc func(ctx context.Context, id string) error

func (f deleterFunc) Delete(ctx context.Context, id string) error { return f(ctx, id) }

// handleDelete removes one record and renders the dashboard from the roster
// it already holds, so only the deleted card disappears.
func (c *Console) handleDelete(w http.ResponseWriter, r *http.Request) {
	session, role := c.caller(r)
	records, err := c.records.List(r.Context(), session, role)
	if err != nil {
		c.log.Error("list employees failed", zap.String("accountId", session.AccountID), zap.Error(err))
		c.addFlash(w, r, flashError, deleteFailedMessage)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "employeeID")
	roster, err := employees.NewRoster(records).Delete(r.Context(), deleterFunc(func(ctx context.Context, id string) error {
		return c.records.Delete(ctx, session, id)
	}), id)
	if err != nil {
		c.log.Error("delete employee failed", zap.String("employeeId", id), zap.Error(err))
		c.addFlash(w, r, flashError, deleteFailedMessage)
	} else {
		c.log.Info("employee deleted", zap.String("employeeId", id), zap.String("accountId", session.AccountID))
		c.addFlash(w, r, flashSuccess, deletedMessage)
	}
	c.renderAdmin(w, r, http.StatusOK, roster, "")
}

func (c *Console) handleEmployee(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	record, err := c.records.Own(r.Context(), session)
	switch {
	case errors.Is(err, employees.ErrNotFound):
		c.render(w, r, http.StatusOK, "employee.html", pongo2.Context{"account": session})
		return
	case err != nil:
		c.log.Error("load own record failed", zap.String("accountId", session.AccountID), zap.Error(err))
		c.render(w, r, http.StatusInternalServerError, "employee.html", pongo2.Context{"account": session, "error": "Failed to load your profile."})
		return
	}
	c.render(w, r, http.StatusOK, "employee.html", pongo2.Context{"account": session, "employee": record})
}

func (c *Console) handleOwnProfilePDF(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	record, err := c.records.Own(r.Context(), session)
	if err != nil {
		c.missingRecord(w, r, err)
		return
	}
	c.writePDF(w, record)
}

func (c *Console) missingRecord(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, employees.ErrNotFound) {
		c.log.Error("load employee failed", zap.Error(err))
	}
	c.render(w, r, http.StatusNotFound, "notfound.html", nil)
}
