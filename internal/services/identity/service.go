// Package identity verifies the bearer tokens clients present when they connect.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/model"
)

// Identity is a verified caller
type Identity struct {
	UserID      model.UserID
	DisplayName string
	ExpiresAt   time.Time
}

// User returns the identity as a user record stamped with now
func (i *Identity) User(now time.Time) *model.User {
	return &model.User{
		ID:          i.UserID,
		DisplayName: i.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Verifier resolves a credential token into an identity.
// Every failure wraps model.ErrAuth.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Config holds configuration for the identity service
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{
		Issuer:   "tictactoe",
		TokenTTL: 24 * time.Hour,
	}
}

type claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// Service verifies and issues HS256 JWTs whose subject is the user id
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
	random random.Random
}

// Ensure Service implements Verifier
var _ Verifier = (*Service)(nil)

// New creates a new identity Service
func New(cfg Config, clock clock.Clock, random random.Random) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("identity: secret is required")
	}
	defaults := DefaultConfig()
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		clock:  clock,
		random: random,
	}, nil
}

// Verify checks the signature, issuer and expiry of token
func (s *Service) Verify(_ context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", model.ErrInvalidToken)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if parsed.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", model.ErrInvalidToken)
	}
	if parsed.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", model.ErrInvalidToken)
	}
	if parsed.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: exp is required", model.ErrInvalidToken)
	}
	now := s.clock.Now()
	if !parsed.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: token expired", model.ErrInvalidToken)
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return nil, fmt.Errorf("%w: token not active yet", model.ErrInvalidToken)
	}

	name := parsed.Name
	if name == "" {
		name = parsed.Subject
	}
	return &Identity{
		UserID:      model.UserID(parsed.Subject),
		DisplayName: name,
		ExpiresAt:   parsed.ExpiresAt.UTC(),
	}, nil
}

// Issue signs a token for userID valid for the configured TTL
func (s *Service) Issue(userID model.UserID, displayName string) (string, error) {
	if userID == "" {
		return "", errors.New("identity: user id is required")
	}
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        s.random.UUID(),
		},
		Name: displayName,
	})
	return token.SignedString(s.secret)
}
