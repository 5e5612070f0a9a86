package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/avatars"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/importer"
	"staffdesk/internal/domain/wizard"
	"staffdesk/internal/platform/cache"
	"staffdesk/internal/platform/config"
	"staffdesk/internal/platform/crypto"
	"staffdesk/internal/platform/db"
	"staffdesk/internal/platform/jobs"
	"staffdesk/internal/platform/metrics"
	"staffdesk/internal/platform/storage"
)

// App holds the wired services shared by the HTTP server and the CLI
// maintenance commands.
type App struct {
	Config config.Config
	Log    *zap.Logger
	DB     *pgxpool.Pool

	AccountStore *auth.Store
	Accounts     *auth.Service
	Resolver     *access.Resolver
	Employees    *employees.Service
	Audit        *audit.Service
	Avatars      *avatars.Service
	Wizards      *wizard.Service
	Jobs         *jobs.Service
	Metrics      *metrics.Collector

	roleCache *cache.RoleCache
}

// New connects to Postgres (and Redis when configured) and builds every
// service. It does not run migrations or start background work.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; using an ephemeral secret, sessions will not survive a restart")
		cfg.JWTSecret = ephemeralSecret()
	}
	if cfg.SessionKey == "" {
		log.Warn("SESSION_KEY not set; using an ephemeral console cookie key")
		cfg.SessionKey = ephemeralSecret()
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, Log: log, DB: pool}

	box, err := crypto.NewBox(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.AccountStore = auth.NewStore(pool)
	app.Accounts = auth.NewService(app.AccountStore, cfg.JWTSecret, cfg.SessionTTL, box, log.Named("auth"))

	// A nil *RoleCache stored in the interface would not compare equal to
	// nil, so the resolver only gets a cache when one is connected.
	var roleCache access.RoleCache
	if cfg.RedisAddr != "" {
		app.roleCache, err = cache.Connect(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RoleCacheTTL,
		}, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		roleCache = app.roleCache
	}
	app.Resolver = access.NewResolver(app.Accounts, roleCache, log.Named("access"))

	app.Audit = audit.New(pool)
	app.Employees = employees.NewService(employees.NewStore(pool))
	app.Employees.Audit = app.Audit
	app.Employees.Log = log.Named("employees")

	bucket, err := storage.New(cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	app.Avatars = avatars.NewService(bucket, cfg.MaxUploadBytes, log.Named("avatars"))

	submitter := wizard.NewSubmitter(app.Accounts, app.Employees, log.Named("wizard"))
	app.Wizards = wizard.NewService(wizard.NewRegistry(cfg.WizardIdleTTL), submitter, app.Employees, app.Avatars, log.Named("wizard"))

	app.Jobs = jobs.New(jobs.PGRunLog{DB: pool}, log)
	app.Metrics = metrics.New()
	return app, nil
}

func (a *App) Close() {
	if a.roleCache != nil {
		if err := a.roleCache.Close(); err != nil {
			a.Log.Warn("role cache close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) Migrate(ctx context.Context) error {
	applied, err := db.Migrate(ctx, a.DB, a.Config.MigrationsDir, a.Log)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	a.Log.Info("migrations complete", zap.Strings("applied", applied))
	return nil
}

func (a *App) Seed(ctx context.Context) error {
	return db.Seed(ctx, a.Accounts, a.Config.SeedAdminEmail, a.Config.SeedAdminPassword, a.Log)
}

// SweepOrphans reports, and with remove set deletes, employee accounts left
// without a record by a failed wizard submission. The run is recorded in
// job_runs.
func (a *App) SweepOrphans(ctx context.Context, remove bool) (jobs.OrphanReport, error) {
	var report jobs.OrphanReport
	_, err := a.Jobs.RunNow(ctx, jobs.JobOrphanSweep, func(ctx context.Context) (any, error) {
		var err error
		report, err = jobs.SweepOrphans(ctx, a.AccountStore, time.Now(), a.Config.OrphanGracePeriod, remove, a.Log)
		return report, err
	})
	return report, err
}

// Import submits every row of a CSV as a create-mode wizard owned by the
// admin account with the given email.
func (a *App) Import(ctx context.Context, adminEmail string, workers int, in io.Reader, errOut io.Writer) (importer.Report, error) {
	account, err := a.AccountStore.FindAccountByEmail(ctx, adminEmail)
	if err != nil {
		return importer.Report{}, fmt.Errorf("find admin %s: %w", adminEmail, err)
	}
	role, err := a.Accounts.RoleOf(ctx, account.ID)
	if err != nil {
		return importer.Report{}, fmt.Errorf("resolve role for %s: %w", adminEmail, err)
	}
	if role != auth.RoleAdmin {
		return importer.Report{}, fmt.Errorf("%s is not an admin account", adminEmail)
	}

	session := auth.Session{AccountID: account.ID, Email: account.Email}
	return importer.New(a.Wizards.Submitter, workers, a.Log.Named("importer")).Run(ctx, session, in, errOut)
}

// Run applies migrations and seed data as configured, starts the scheduled
// jobs and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.Config.RunMigrations {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}
	if a.Config.RunSeed {
		if err := a.Seed(ctx); err != nil {
			return err
		}
	}

	if err := a.scheduleJobs(); err != nil {
		return err
	}
	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer func() {
		stopJobs()
		a.Jobs.Wait()
	}()
	a.Jobs.Start(jobsCtx)

	handler, err := a.Routes()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("staffdesk listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) scheduleJobs() error {
	if a.Config.OrphanSweepSchedule != "" {
		err := a.Jobs.Schedule(a.Config.OrphanSweepSchedule, jobs.JobOrphanSweep, true, func(ctx context.Context) (any, error) {
			return jobs.SweepOrphans(ctx, a.AccountStore, time.Now(), a.Config.OrphanGracePeriod, a.Config.OrphanSweepDelete, a.Log)
		})
		if err != nil {
			return err
		}
	}
	return a.Jobs.Schedule("@every 5m", jobs.JobWizardSweep, false, func(context.Context) (any, error) {
		dropped := a.Wizards.Registry.Sweep()
		if dropped > 0 {
			a.Log.Info("expired wizards dropped", zap.Int("count", dropped))
		}
		return map[string]int{"dropped": dropped}, nil
	})
}

func ephemeralSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
