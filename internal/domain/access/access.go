package access

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/metrics"
)

// Decision is the routing guard outcome for one request.
type Decision int

const (
	Allow Decision = iota
	// RedirectLogin is returned when there is no session or the session's
	// role could not be resolved.
	RedirectLogin
	// RedirectHome is returned for a resolved role that is not allowed on
	// the route.
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Target is where a redirect decision sends the caller.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return "/login"
	case RedirectHome:
		return "/"
	}
	return ""
}

// Decide is the guard rule. An empty allowed list admits any resolved role.
func Decide(hasSession bool, role auth.Role, resolved bool, allowed []auth.Role) Decision {
	if !hasSession || !resolved {
		return RedirectLogin
	}
	switch role {
	case auth.RoleAdmin, auth.RoleEmployee:
	default:
		return RedirectHome
	}
	if len(allowed) > 0 && !slices.Contains(allowed, role) {
		return RedirectHome
	}
	return Allow
}

type RoleSource interface {
	RoleOf(ctx context.Context, accountID string) (auth.Role, error)
}

// RoleCache is an optional read-through cache in front of RoleSource.
type RoleCache interface {
	Role(ctx context.Context, accountID string) (auth.Role, bool, error)
	SetRole(ctx context.Context, accountID string, role auth.Role) error
}

type Resolver struct {
	Roles RoleSource
	Cache RoleCache
	Log   *zap.Logger
}

func NewResolver(roles RoleSource, cache RoleCache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Roles: roles, Cache: cache, Log: log}
}

// Resolve looks up the session's role. Lookup failures are logged and
// reported as no role so the guard fails closed.
func (r *Resolver) Resolve(ctx context.Context, session auth.Session) (auth.Role, bool) {
	if !session.Active() {
		return "", false
	}
	if r.Cache != nil {
		role, ok, err := r.Cache.Role(ctx, session.AccountID)
		if err != nil {
			r.Log.Warn("role cache read failed", zap.String("accountId", session.AccountID), zap.Error(err))
		} else if ok {
			return role, true
		}
	}

	role, err := r.Roles.RoleOf(ctx, session.AccountID)
	if err != nil {
		r.Log.Warn("role lookup failed", zap.String("accountId", session.AccountID), zap.Error(err))
		return "", false
	}

	if r.Cache != nil {
		if err := r.Cache.SetRole(ctx, session.AccountID, role); err != nil {
			r.Log.Warn("role cache write failed", zap.String("accountId", session.AccountID), zap.Error(err))
		}
	}
	return role, true
}

// Check resolves the role and applies Decide in one step.
func (r *Resolver) Check(ctx context.Context, session auth.Session, hasSession bool, allowed ...auth.Role) (auth.Role, Decision) {
	var (
		role     auth.Role
		resolved bool
	)
	if hasSession {
		role, resolved = r.Resolve(ctx, session)
	}
	decision := Decide(hasSession, role, resolved, allowed)
	metrics.GuardDecisions.WithLabelValues(decision.String()).Inc()
	return role, decision
}
