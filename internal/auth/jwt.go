package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

const defaultTokenTTL = 24 * time.Hour

// Config carries the token signing parameters.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration
}

// Validate applies defaults and rejects unusable configuration.
func (cfg *Config) Validate() error {
	if cfg.Secret == "" {
		return errors.New("auth secret is empty")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return nil
}

// Claims is the token payload. Subject carries the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for the user.
func IssueToken(cfg Config, user rental.User, now time.Time) (token string, expiresAt time.Time, err error) {
	if user.UserID == "" {
		return "", time.Time{}, fmt.Errorf("subject is empty")
	}
	if err := cfg.Validate(); err != nil {
		return "", time.Time{}, err
	}

	expiresAt = now.Add(cfg.TokenTTL)
	claims := Claims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			Issuer:    cfg.Issuer,
			Audience:  audience(cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates the signature and expiry and returns the caller
// identity encoded in the token.
func ParseToken(cfg Config, token string) (rental.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(parsedToken *jwt.Token) (any, error) {
		if _, ok := parsedToken.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", parsedToken.Method.Alg())
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return rental.Actor{}, rental.ErrInvalidCredentials
	}
	role, err := rental.ParseRole(claims.Role)
	if err != nil {
		return rental.Actor{}, rental.ErrInvalidCredentials
	}
	actor, err := rental.NewActor(claims.Subject, role)
	if err != nil {
		return rental.Actor{}, rental.ErrInvalidCredentials
	}
	return actor, nil
}

func audience(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
