package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

type Repository interface {
	CreateAccount(ctx context.Context, email, passwordHash string, role Role) (string, error)
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
	RoleOf(ctx context.Context, accountID string) (Role, error)
	CreateSession(ctx context.Context, accountID, tokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, accountID, tokenHash string) (bool, error)
	RevokeSession(ctx context.Context, accountID, tokenHash string) error
	UpdateLastLogin(ctx context.Context, accountID string) error
	UpdateMFASecret(ctx context.Context, accountID string, secretEnc []byte) error
	GetMFASecret(ctx context.Context, accountID string) ([]byte, error)
	SetMFAEnabled(ctx context.Context, accountID string, enabled bool) error
}

// Sealer encrypts MFA secrets at rest.
type Sealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Service struct {
	Store  Repository
	Secret string
	TTL    time.Duration
	Sealer Sealer
	Issuer string
	Log    *zap.Logger
}

func NewService(store Repository, secret string, ttl time.Duration, sealer Sealer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Store: store, Secret: secret, TTL: ttl, Sealer: sealer, Issuer: "Staffdesk", Log: log}
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// SignUp provisions an account with the given role and returns its identity.
func (s *Service) SignUp(ctx context.Context, email, password string, role Role) (string, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return "", err
	}
	if strings.TrimSpace(email) == "" {
		return "", ErrInvalidCredentials
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	return s.Store.CreateAccount(ctx, email, hash, role)
}

func (s *Service) SignIn(ctx context.Context, email, password, mfaCode string) (Session, error) {
	account, err := s.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if err := CheckPassword(account.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if account.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Session{}, ErrMFARequired
		}
		secret, err := s.openSecret(account.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	sessionID, err := newSessionID()
	if err != nil {
		return Session{}, err
	}
	expires := time.Now().Add(s.TTL)
	if err := s.Store.CreateSession(ctx, account.ID, HashToken(sessionID), expires); err != nil {
		return Session{}, err
	}
	token, err := GenerateToken(s.Secret, Claims{AccountID: account.ID, SessionID: sessionID}, s.TTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, account.ID); err != nil {
		s.Log.Warn("update last_login failed", zap.String("accountId", account.ID), zap.Error(err))
	}

	return Session{
		AccountID: account.ID,
		Email:     account.Email,
		ExpiresAt: expires,
		Token:     token,
		sessionID: sessionID,
	}, nil
}

// CurrentSession resolves a bearer token into a live session.
func (s *Service) CurrentSession(ctx context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrNoSession
	}
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return Session{}, ErrNoSession
	}
	valid, err := s.Store.SessionValid(ctx, claims.AccountID, HashToken(claims.SessionID))
	if err != nil {
		return Session{}, err
	}
	if !valid {
		return Session{}, ErrNoSession
	}
	account, err := s.Store.AccountByID(ctx, claims.AccountID)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
		sessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (s *Service) SignOut(ctx context.Context, session Session) error {
	if !session.Active() || session.sessionID == "" {
		return nil
	}
	return s.Store.RevokeSession(ctx, session.AccountID, HashToken(session.sessionID))
}

func (s *Service) RoleOf(ctx context.Context, accountID string) (Role, error) {
	return s.Store.RoleOf(ctx, accountID)
}

// EnsureAccount returns the identity for email, provisioning it when absent.
func (s *Service) EnsureAccount(ctx context.Context, email, password string, role Role) (string, bool, error) {
	account, err := s.Store.FindAccountByEmail(ctx, email)
	if err == nil {
		return account.ID, false, nil
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		return "", false, err
	}
	id, err := s.SignUp(ctx, email, password, role)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *Service) SetupMFA(ctx context.Context, session Session) (MFASetup, error) {
	if s.Sealer == nil || !s.Sealer.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: session.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	encrypted, err := s.Sealer.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.Store.UpdateMFASecret(ctx, session.AccountID, encrypted); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, session Session, code string) error {
	return s.toggleMFA(ctx, session, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, session Session, code string) error {
	return s.toggleMFA(ctx, session, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, session Session, code string, enabled bool) error {
	if s.Sealer == nil || !s.Sealer.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.Store.GetMFASecret(ctx, session.AccountID)
	if err != nil || len(secretEnc) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.openSecret(secretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFAEnabled(ctx, session.AccountID, enabled)
}

func (s *Service) openSecret(secretEnc []byte) (string, error) {
	if s.Sealer != nil && s.Sealer.Configured() {
		return s.Sealer.DecryptString(secretEnc)
	}
	return string(secretEnc), nil
}
