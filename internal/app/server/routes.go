package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/auth"
	audithandler "staffdesk/internal/transport/http/handlers/audit"
	authhandler "staffdesk/internal/transport/http/handlers/auth"
	avatarshandler "staffdesk/internal/transport/http/handlers/avatars"
	employeeshandler "staffdesk/internal/transport/http/handlers/employees"
	wizardshandler "staffdesk/internal/transport/http/handlers/wizards"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/web"
)

// Routes builds the HTTP handler: probes, metrics, the JSON API under
// /api/v1 and the server-rendered console at the root.
func (a *App) Routes() (http.Handler, error) {
	cfg := a.Config

	console, err := web.New(web.Options{
		Accounts:     a.Accounts,
		Resolver:     a.Resolver,
		Records:      a.Employees,
		Wizards:      a.Wizards,
		TemplatesDir: cfg.TemplatesDir,
		SessionKey:   cfg.SessionKey,
		SessionTTL:   cfg.SessionTTL,
		Secure:       cfg.IsProduction(),
		AllowSignup:  cfg.AllowSelfSignup,
		Log:          a.Log.Named("console"),
	})
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Log, a.Metrics))
	router.Use(middleware.Recoverer(a.Log))
	router.Use(middleware.SecureHeaders(middleware.HeaderOptions{
		Production:   cfg.IsProduction(),
		ImageOrigins: imageOrigins(cfg.StoragePublicBaseURL),
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMin, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if a.roleCache != nil {
			if err := a.roleCache.Ping(ctx); err != nil {
				http.Error(w, "cache not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	// Local storage hands out /uploads URLs unless a public base URL points
	// somewhere else.
	if cfg.StorageBackend == "local" && cfg.StoragePublicBaseURL == "" {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalStorageDir))))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(a.Accounts))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		authHandler := authhandler.NewHandler(a.Accounts, a.Resolver, cfg.AllowSelfSignup, a.Log.Named("auth"))
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(a.Resolver))
			r.Get("/auth/session", authHandler.HandleSession)
			r.Post("/auth/mfa/setup", authHandler.HandleMFASetup)
			r.Post("/auth/mfa/enable", authHandler.HandleMFAEnable)
			r.Post("/auth/mfa/disable", authHandler.HandleMFADisable)

			employeesHandler := employeeshandler.NewHandler(a.Employees, a.Log.Named("employees"))
			employeesHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(a.Resolver, auth.RoleAdmin))

			employeesHandler := employeeshandler.NewHandler(a.Employees, a.Log.Named("employees"))
			employeesHandler.RegisterAdminRoutes(r)

			wizardsHandler := wizardshandler.NewHandler(a.Wizards, a.Log.Named("wizards"))
			wizardsHandler.RegisterRoutes(r)

			avatarsHandler := avatarshandler.NewHandler(a.Avatars, a.Log.Named("avatars"))
			r.Post("/avatars", avatarsHandler.HandleUpload)

			auditHandler := audithandler.NewHandler(a.Audit, a.Log.Named("audit"))
			auditHandler.RegisterRoutes(r)
		})
	})

	console.Routes(router)
	return router, nil
}

// imageOrigins extracts the origin of an absolute public base URL so the
// content security policy admits avatar images served from it.
func imageOrigins(publicBaseURL string) []string {
	if !strings.Contains(publicBaseURL, "://") {
		return nil
	}
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Scheme + "://" + u.Host}
}
