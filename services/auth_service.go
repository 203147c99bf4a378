package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"checkin-backend/models"
	"checkin-backend/realtime"
)

const minPasswordLength = 8

// Principal is the identity carried by a session token.
type Principal struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type sessionClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService is the identity provider: bcrypt credentials kept in the
// credentials collection and HS256 session tokens.
type AuthService struct {
	store           realtime.Store
	secret          []byte
	ttl             time.Duration
	defaultPassword string
	now             func() time.Time
	log             zerolog.Logger
}

type AuthOptions struct {
	Secret          string
	TokenTTL        time.Duration
	DefaultPassword string
}

func NewAuthService(store realtime.Store, opts AuthOptions, log zerolog.Logger) *AuthService {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		store:           store,
		secret:          []byte(opts.Secret),
		ttl:             ttl,
		defaultPassword: opts.DefaultPassword,
		now:             time.Now,
		log:             log.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) credential(ctx context.Context, email string) (models.Credential, bool, error) {
	snap, err := s.store.ReadOnce(ctx, realtime.CollectionCredentials)
	if err != nil {
		return models.Credential{}, false, WrapError(CodeSyncFailure, "read credentials", err)
	}
	raw, ok := snap.Get(models.NormalizeEmail(email))
	if !ok {
		return models.Credential{}, false, nil
	}
	var c models.Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.Credential{}, false, WrapError(CodeSyncFailure, "decode credential", err)
	}
	return c, true, nil
}

// SetPassword creates or replaces the credential for email.
func (s *AuthService) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return WrapError(CodeInvalidArgument, "hash password", err)
	}
	key := models.NormalizeEmail(email)
	cred := models.Credential{Email: key, PasswordHash: string(hash)}
	if err := s.store.Put(ctx, realtime.CollectionCredentials, key, cred); err != nil {
		return WrapError(CodeSyncFailure, "store credential", err)
	}
	return nil
}

// CreateDefaultCredential gives a new member the shared temporary password.
func (s *AuthService) CreateDefaultCredential(ctx context.Context, email string) error {
	return s.SetPassword(ctx, email, s.defaultPassword)
}

// ResetPassword puts an account back on the temporary password.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	return s.CreateDefaultCredential(ctx, email)
}

func (s *AuthService) DeleteCredential(ctx context.Context, email string) error {
	err := s.store.Delete(ctx, realtime.CollectionCredentials, models.NormalizeEmail(email))
	if err != nil && !errors.Is(err, realtime.ErrNoDocument) {
		return WrapError(CodeSyncFailure, "delete credential", err)
	}
	return nil
}

// Authenticate checks email and password. Unknown accounts and wrong
// passwords fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) error {
	c, ok, err := s.credential(ctx, email)
	if err != nil {
		return err
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		s.log.Info().Str("email", email).Msg("sign-in rejected")
		return NewError(CodeUnauthenticated, "invalid email or password")
	}
	return nil
}

// ChangePassword re-authenticates with the current password first.
func (s *AuthService) ChangePassword(ctx context.Context, email, current, next string) error {
	if err := s.Authenticate(ctx, email, current); err != nil {
		return err
	}
	if current == next {
		return invalid("new password must differ from the current one")
	}
	return s.SetPassword(ctx, email, next)
}

// SeedSuperAdmin creates the super admin credential if it does not exist.
func (s *AuthService) SeedSuperAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	_, ok, err := s.credential(ctx, email)
	if err != nil || ok {
		return err
	}
	if password == "" {
		password = s.defaultPassword
	}
	if err := s.SetPassword(ctx, email, password); err != nil {
		return err
	}
	s.log.Info().Str("email", email).Msg("super admin credential seeded")
	return nil
}

// IssueToken signs a session token for p.
func (s *AuthService) IssueToken(p Principal) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Name: p.Name,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   models.NormalizeEmail(p.Email),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, WrapError(CodeUnauthenticated, "sign token", err)
	}
	return tok, exp, nil
}

// ParseToken validates a session token and returns its principal.
func (s *AuthService) ParseToken(raw string) (Principal, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, WrapError(CodeUnauthenticated, "invalid session token", err)
	}
	if claims.Subject == "" {
		return Principal{}, NewError(CodeUnauthenticated, "session token has no subject")
	}
	return Principal{Email: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
