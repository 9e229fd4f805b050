package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

// Authenticator registers accounts and exchanges credentials for tokens.
type Authenticator struct {
	store rental.Store
	cfg   Config
	nowFn func() time.Time
}

// NewAuthenticator wires the account store and token configuration.
func NewAuthenticator(store rental.Store, cfg Config, now func() time.Time) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("authenticator requires a store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{store: store, cfg: cfg, nowFn: now}, nil
}

// RegisterInput carries a new account request. Role is optional and
// defaults to customer; only elevated callers may assign other roles.
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
	Role        rental.Role
}

// Session is an issued access token with its identity.
type Session struct {
	Token       string
	ExpiresUnix int64
	UserID      string
	Email       string
	DisplayName string
	Role        rental.Role
}

// Register creates an account and returns a session for it.
func (authenticator *Authenticator) Register(ctx context.Context, input RegisterInput) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, rental.ErrInvalidCredentials
	}
	role := input.Role
	if role == "" {
		role = rental.RoleCustomer
	}
	if _, err := rental.ParseRole(role.String()); err != nil {
		return Session{}, err
	}
	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return Session{}, err
	}

	user := rental.User{
		UserID:         uuid.NewString(),
		Email:          email,
		DisplayName:    strings.TrimSpace(input.DisplayName),
		PasswordHash:   passwordHash,
		Role:           role,
		CreatedUnixUTC: authenticator.nowFn().UTC().Unix(),
	}
	if err := authenticator.store.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return authenticator.sessionFor(user)
}

// Login verifies credentials and returns a session.
func (authenticator *Authenticator) Login(ctx context.Context, email string, password string) (Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := authenticator.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, rental.ErrUserNotFound) {
			return Session{}, rental.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return Session{}, rental.ErrInvalidCredentials
	}
	return authenticator.sessionFor(user)
}

// EnsureAdmin provisions the bootstrap administrator account so the first
// elevated login exists before any request is served. It is a no-op when
// either value is blank or the account already exists, so restarts and
// concurrent instances are safe.
func (authenticator *Authenticator) EnsureAdmin(ctx context.Context, email string, password string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || password == "" {
		return nil
	}
	if _, err := authenticator.store.GetUserByEmail(ctx, normalized); err == nil {
		return nil
	} else if !errors.Is(err, rental.ErrUserNotFound) {
		return err
	}
	_, err := authenticator.Register(ctx, RegisterInput{
		Email:       normalized,
		DisplayName: "Administrator",
		Password:    password,
		Role:        rental.RoleAdministrator,
	})
	if errors.Is(err, rental.ErrUserExists) {
		return nil
	}
	return err
}

func (authenticator *Authenticator) sessionFor(user rental.User) (Session, error) {
	token, expiresAt, err := IssueToken(authenticator.cfg, user, authenticator.nowFn())
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:       token,
		ExpiresUnix: expiresAt.Unix(),
		UserID:      user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, nil
}
