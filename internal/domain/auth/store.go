package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	MFAEnabled   bool      `db:"mfa_enabled"`
	MFASecretEnc []byte    `db:"mfa_secret_enc"`
	CreatedAt    time.Time `db:"created_at"`
}

// Orphan is an employee-role account that has no employee record.
type Orphan struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

const accountColumns = "id, email, password_hash, mfa_enabled, mfa_secret_enc, created_at"

// CreateAccount inserts the account and its profile in one transaction so an
// account never exists without a role.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string, role Role) (string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO accounts (email, password_hash)
    VALUES ($1, $2)
    RETURNING id
  `, normalizeEmail(email), passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		return "", err
	}

	if _, err := tx.Exec(ctx, "INSERT INTO profiles (id, role) VALUES ($1, $2)", id, string(role)); err != nil {
		return "", fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = $1", normalizeEmail(email))
	if err != nil {
		return Account{}, err
	}
	account, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Account])
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	return account, err
}

func (s *Store) AccountByID(ctx context.Context, id string) (Account, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	if err != nil {
		return Account{}, err
	}
	account, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Account])
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNoSession
	}
	return account, err
}

func (s *Store) RoleOf(ctx context.Context, accountID string) (Role, error) {
	var raw string
	err := s.DB.QueryRow(ctx, "SELECT role FROM profiles WHERE id = $1", accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRoleNotFound
	}
	if err != nil {
		return "", err
	}
	return ParseRole(raw)
}

func (s *Store) CreateSession(ctx context.Context, accountID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (account_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, accountID, tokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, accountID, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE account_id = $1 AND token_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, accountID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RevokeSession(ctx context.Context, accountID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE account_id = $1 AND token_hash = $2", accountID, tokenHash)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, accountID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE accounts SET last_login = now() WHERE id = $1", accountID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, accountID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE accounts SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2
  `, secretEnc, accountID)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, accountID string) ([]byte, error) {
	var secretEnc []byte
	if err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM accounts WHERE id = $1", accountID).Scan(&secretEnc); err != nil {
		return nil, err
	}
	return secretEnc, nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, accountID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE accounts SET mfa_enabled = $1 WHERE id = $2", enabled, accountID)
	return err
}

func (s *Store) ListOrphans(ctx context.Context, createdBefore time.Time) ([]Orphan, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.email, a.created_at
    FROM accounts a
    JOIN profiles p ON p.id = a.id
    LEFT JOIN employees e ON e.id = a.id
    WHERE p.role = $1 AND e.id IS NULL AND a.created_at < $2
    ORDER BY a.created_at
  `, string(RoleEmployee), createdBefore)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Orphan])
}

// DeleteAccount removes an account that still has no employee record.
func (s *Store) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM accounts a
    WHERE a.id = $1 AND NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = a.id)
  `, accountID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
