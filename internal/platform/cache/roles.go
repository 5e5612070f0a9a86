package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RoleCache keeps resolved account roles in Redis so the routing guard does
// not hit the profiles table on every request.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Connect dials Redis and verifies it answers before returning.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*RoleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRoleCache(client, cfg.TTL, log), nil
}

func NewRoleCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RoleCache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{client: client, ttl: ttl, log: log.With(zap.String("module", "role-cache"))}
}

// Role returns the cached role. A miss reports ok=false with a nil error.
func (c *RoleCache) Role(ctx context.Context, accountID string) (auth.Role, bool, error) {
	raw, err := c.client.Get(ctx, roleKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	role, err := auth.ParseRole(raw)
	if err != nil {
		c.log.Warn("dropping unreadable cached role", zap.String("accountId", accountID), zap.String("value", raw))
		_ = c.client.Del(ctx, roleKey(accountID)).Err()
		return "", false, nil
	}
	return role, true, nil
}

func (c *RoleCache) SetRole(ctx context.Context, accountID string, role auth.Role) error {
	return c.client.Set(ctx, roleKey(accountID), role.String(), c.ttl).Err()
}

func (c *RoleCache) Forget(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, roleKey(accountID)).Err()
}

func (c *RoleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RoleCache) Close() error {
	if err := c.client.Close(); err != nil {
		c.log.Error("failed to close Redis client", zap.Error(err))
		return err
	}
	return nil
}

func roleKey(accountID string) string {
	return "staffdesk:role:" + accountID
}
