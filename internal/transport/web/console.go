package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flosch/pongo2/v4"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	wizardshandler "staffdesk/internal/transport/http/handlers/wizards"
)

const (
	sessionCookie = "staffdesk-session"
	flashCookie   = "staffdesk-flash"
	tokenKey      = "token"
)

// Accounts is the auth surface the console pages drive.
type Accounts interface {
	SignUp(ctx context.Context, email, password string, role auth.Role) (string, error)
	SignIn(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	CurrentSession(ctx context.Context, token string) (auth.Session, error)
	SignOut(ctx context.Context, session auth.Session) error
}

type Records interface {
	List(ctx context.Context, session auth.Session, role auth.Role) ([]employees.Record, error)
	Get(ctx context.Context, session auth.Session, role auth.Role, id string) (employees.Record, error)
	Own(ctx context.Context, session auth.Session) (employees.Record, error)
	Delete(ctx context.Context, session auth.Session, id string) error
}

type Options struct {
	Accounts     Accounts
	Resolver     *access.Resolver
	Records      Records
	Wizards      wizardshandler.Wizards
	TemplatesDir string
	SessionKey   string
	SessionTTL   time.Duration
	Secure       bool
	AllowSignup  bool
	Log          *zap.Logger
}

// Console serves the server-rendered pages. It shares the domain services
// with the JSON API and keeps the bearer token in a signed cookie.
type Console struct {
	accounts    Accounts
	resolver    *access.Resolver
	records     Records
	wizards     wizardshandler.Wizards
	templates   *pongo2.TemplateSet
	cookies     *sessions.CookieStore
	allowSignup bool
	log         *zap.Logger
}

func New(opts Options) (*Console, error) {
	if opts.SessionKey == "" {
		return nil, errors.New("console session key is required")
	}
	loader, err := pongo2.NewLocalFileSystemLoader(opts.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", opts.TemplatesDir, err)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	cookies := sessions.NewCookieStore([]byte(opts.SessionKey))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Console{
		accounts:    opts.Accounts,
		resolver:    opts.Resolver,
		records:     opts.Records,
		wizards:     opts.Wizards,
		templates:   pongo2.NewSet("console", loader),
		cookies:     cookies,
		allowSignup: opts.AllowSignup,
		log:         log,
	}, nil
}

func (c *Console) Routes(r chi.Router) {
	r.Get("/", c.handleLoginPage)
	r.Get("/login", c.handleLoginPage)
	r.Post("/login", c.handleLogin)
	r.Get("/signup", c.handleSignupPage)
	r.Post("/signup", c.handleSignup)
	r.Post("/logout", c.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(c.guard(auth.RoleAdmin))
		r.Get("/admin", c.handleAdmin)
		r.Get("/admin/employees/{employeeID}", c.handleEmployeeDetail)
		r.Get("/admin/employees/{employeeID}/profile.pdf", c.handleProfilePDF)
		r.Post("/admin/employees/{employeeID}/delete", c.handleDelete)
		r.Post("/admin/wizard", c.handleWizardOpen)
		r.Get("/admin/wizard/{wizardID}", c.handleWizardPage)
		r.Post("/admin/wizard/{wizardID}", c.handleWizardStep)
		r.Post("/admin/wizard/{wizardID}/photo", c.handleWizardPhoto)
	})

	r.Group(func(r chi.Router) {
		r.Use(c.guard(auth.RoleEmployee))
		r.Get("/employee", c.handleEmployee)
		r.Get("/employee/profile.pdf", c.handleOwnProfilePDF)
	})
}

type roleCtxKey struct{}

// guard resolves the cookie session and role before any page handler runs.
// Rejected requests are redirected with 303 and never reach the page.
func (c *Console) guard(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := c.currentSession(r)
			role, decision := c.resolver.Check(r.Context(), session, ok, roles...)
			if decision != access.Allow {
				http.Redirect(w, r, decision.Target(), http.StatusSeeOther)
				return
			}
			ctx := auth.WithSession(r.Context(), session)
			ctx = context.WithValue(ctx, roleCtxKey{}, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (c *Console) caller(r *http.Request) (auth.Session, auth.Role) {
	session, _ := auth.SessionFrom(r.Context())
	role, _ := r.Context().Value(roleCtxKey{}).(auth.Role)
	return session, role
}

func (c *Console) currentSession(r *http.Request) (auth.Session, bool) {
	cookie, err := c.cookies.Get(r, sessionCookie)
	if err != nil {
		return auth.Session{}, false
	}
	token, _ := cookie.Values[tokenKey].(string)
	if token == "" {
		return auth.Session{}, false
	}
	session, err := c.accounts.CurrentSession(r.Context(), token)
	if err != nil {
		return auth.Session{}, false
	}
	return session, true
}

func (c *Console) storeToken(w http.ResponseWriter, r *http.Request, token string) error {
	cookie, _ := c.cookies.Get(r, sessionCookie)
	cookie.Values[tokenKey] = token
	return cookie.Save(r, w)
}

func (c *Console) clearToken(w http.ResponseWriter, r *http.Request) {
	cookie, _ := c.cookies.Get(r, sessionCookie)
	delete(cookie.Values, tokenKey)
	cookie.Options.MaxAge = -1
	if err := cookie.Save(r, w); err != nil {
		c.log.Warn("clear session cookie failed", zap.Error(err))
	}
}

// Flashes are stored as "s<msg>" or "e<msg>" so templates can style them.
func (c *Console) addFlash(w http.ResponseWriter, r *http.Request, kind flashKind, msg string) {
	cookie, _ := c.cookies.Get(r, flashCookie)
	cookie.AddFlash(string(kind) + msg)
	if err := cookie.Save(r, w); err != nil {
		c.log.Warn("save flash failed", zap.Error(err))
	}
}

func (c *Console) takeFlashes(w http.ResponseWriter, r *http.Request) []any {
	cookie, _ := c.cookies.Get(r, flashCookie)
	flashes := cookie.Flashes()
	if len(flashes) > 0 {
		if err := cookie.Save(r, w); err != nil {
			c.log.Warn("clear flashes failed", zap.Error(err))
		}
	}
	return flashes
}

func (c *Console) render(w http.ResponseWriter, r *http.Request, status int, name string, data pongo2.Context) {
	tpl, err := c.templates.FromFile(name)
	if err != nil {
		c.log.Error("load template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ctx := pongo2.Context{"flashes": c.takeFlashes(w, r)}
	ctx.Update(data)

	out, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		c.log.Error("render template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (c *Console) writePDF(w http.ResponseWriter, record employees.Record) {
	var buf bytes.Buffer
	if err := employees.WriteProfilePDF(&buf, record); err != nil {
		c.log.Error("render profile pdf failed", zap.String("employeeId", record.ID), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "employee-"+record.ID+".pdf"))
	_, _ = w.Write(buf.Bytes())
}
