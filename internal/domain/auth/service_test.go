package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	roles    map[string]Role
	sessions map[string]time.Time
	revoked  map[string]bool
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]Account{},
		roles:    map[string]Role{},
		sessions: map[string]time.Time{},
		revoked:  map[string]bool{},
	}
}

func (m *memStore) CreateAccount(_ context.Context, email, hash string, role Role) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == normalizeEmail(email) {
			return "", ErrEmailTaken
		}
	}
	m.nextID++
	id := "acct-" + string(rune('0'+m.nextID))
	m.accounts[id] = Account{ID: id, Email: normalizeEmail(email), PasswordHash: hash, CreatedAt: time.Now()}
	m.roles[id] = role
	return id, nil
}

func (m *memStore) FindAccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == normalizeEmail(email) {
			return account, nil
		}
	}
	return Account{}, ErrInvalidCredentials
}

func (m *memStore) AccountByID(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNoSession
	}
	return account, nil
}

func (m *memStore) RoleOf(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return "", ErrRoleNotFound
	}
	return role, nil
}

func (m *memStore) CreateSession(_ context.Context, accountID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[accountID+"|"+tokenHash] = expires
	return nil
}

func (m *memStore) SessionValid(_ context.Context, accountID, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := accountID + "|" + tokenHash
	expires, ok := m.sessions[key]
	return ok && !m.revoked[key] && expires.After(time.Now()), nil
}

func (m *memStore) RevokeSession(_ context.Context, accountID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[accountID+"|"+tokenHash] = true
	return nil
}

func (m *memStore) UpdateLastLogin(context.Context, string) error { return nil }

func (m *memStore) UpdateMFASecret(_ context.Context, id string, secretEnc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.accounts[id]
	account.MFASecretEnc = secretEnc
	account.MFAEnabled = false
	m.accounts[id] = account
	return nil
}

func (m *memStore) GetMFASecret(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].MFASecretEnc, nil
}

func (m *memStore) SetMFAEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.accounts[id]
	account.MFAEnabled = enabled
	m.accounts[id] = account
	return nil
}

type plainSealer struct{}

func (plainSealer) Configured() bool                           { return true }
func (plainSealer) EncryptString(value string) ([]byte, error) { return []byte(value), nil }
func (plainSealer) DecryptString(value []byte) (string, error) { return string(value), nil }

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, "test-secret", time.Hour, plainSealer{}, nil), store
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	id, err := svc.SignUp(ctx, "Jane@Example.com", "password1", RoleEmployee)
	require.NoError(t, err)
	assert.Equal(t, RoleEmployee, store.roles[id])

	_, err = svc.SignUp(ctx, "jane@example.com", "password1", RoleEmployee)
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.SignIn(ctx, "jane@example.com", "wrong-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.SignIn(ctx, "jane@example.com", "password1", "")
	require.NoError(t, err)
	assert.Equal(t, id, session.AccountID)
	assert.NotEmpty(t, session.Token)

	current, err := svc.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, id, current.AccountID)
	assert.Equal(t, "jane@example.com", current.Email)

	require.NoError(t, svc.SignOut(ctx, current))
	_, err = svc.CurrentSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSignUpRejectsShortPasswordAndUnknownRole(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SignUp(context.Background(), "a@example.com", "short", RoleAdmin)
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.SignUp(context.Background(), "a@example.com", "password1", Role("owner"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestCurrentSessionRejectsGarbage(t *testing.T) {
	svc, _ := newTestService()
	for _, token := range []string{"", "not-a-jwt"} {
		_, err := svc.CurrentSession(context.Background(), token)
		assert.ErrorIs(t, err, ErrNoSession)
	}
}

func TestSignInWithMFA(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.SignUp(ctx, "admin@example.com", "password1", RoleAdmin)
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, "admin@example.com", "password1", "")
	require.NoError(t, err)

	setup, err := svc.SetupMFA(ctx, session)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.EnableMFA(ctx, session, "000000x"), ErrMFAInvalid)
	require.NoError(t, svc.EnableMFA(ctx, session, code))

	_, err = svc.SignIn(ctx, "admin@example.com", "password1", "")
	assert.ErrorIs(t, err, ErrMFARequired)

	_, err = svc.SignIn(ctx, "admin@example.com", "password1", "123")
	assert.ErrorIs(t, err, ErrMFAInvalid)

	_, err = svc.SignIn(ctx, "admin@example.com", "password1", code)
	require.NoError(t, err)
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	first, created, err := svc.EnsureAccount(ctx, "root@example.com", "password1", RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.EnsureAccount(ctx, "root@example.com", "password1", RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{raw: "admin", want: RoleAdmin, ok: true},
		{raw: " Employee ", want: RoleEmployee, ok: true},
		{raw: "manager"},
		{raw: ""},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseRole(tc.raw)
			if !tc.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownRole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoleHome(t *testing.T) {
	assert.Equal(t, "/admin", RoleAdmin.Home())
	assert.Equal(t, "/employee", RoleEmployee.Home())
	assert.Equal(t, "/", Role("").Home())
}
