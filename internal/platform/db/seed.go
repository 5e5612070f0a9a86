package db

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
)

// AccountEnsurer creates an account unless one with the email exists.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, email, password string, role auth.Role) (string, bool, error)
}

// Seed makes sure the bootstrap admin account exists. Blank credentials skip
// seeding.
func Seed(ctx context.Context, accounts AccountEnsurer, email, password string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		log.Info("seed admin not configured; skipping")
		return nil
	}

	id, created, err := accounts.EnsureAccount(ctx, email, password, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("seed admin created", zap.String("accountId", id), zap.String("email", email))
	}
	return nil
}
