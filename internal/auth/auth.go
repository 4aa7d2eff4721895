// Package auth implements the credential boundary: registration, login, and
// token verification. The rest of the system trusts the owner identity this
// package produces and never re-validates it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.trai.ch/zerr"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskvault/taskvault/internal/logger"
	"github.com/taskvault/taskvault/internal/model"
	"github.com/taskvault/taskvault/internal/store"
)

// DefaultTokenTTL is used when the configured TTL is zero.
const DefaultTokenTTL = 60 * time.Minute

// Provider issues and verifies access tokens backed by the users table.
type Provider struct {
	users    *store.Users
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	log      logger.Logger
}

// NewProvider creates an auth provider. secret signs HS256 tokens.
func NewProvider(db *sqlx.DB, secret string, tokenTTL time.Duration) *Provider {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Provider{
		users:    store.NewUsers(db),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		log:      logger.Auth(),
	}
}

// Register creates a user with a bcrypt-hashed password. A taken username
// surfaces as model.ErrConflict.
func (p *Provider) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" {
		return nil, model.Validation("username", "username and password are required")
	}
	if password == "" {
		return nil, model.Validation("password", "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := p.users.Create(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}

	p.log.Info("user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login verifies the credentials and returns a signed access token. Both an
// unknown username and a wrong password surface as model.ErrPermission.
func (p *Provider) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", model.Validation("username", "username and password are required")
	}

	user, err := p.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", zerr.Wrap(model.ErrPermission, "invalid credentials")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", zerr.Wrap(model.ErrPermission, "invalid credentials")
	}

	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	p.log.Debug("token issued", "user_id", user.ID)
	return token, nil
}

// Verify parses and validates an access token and returns the owner id it
// carries. Any failure surfaces as model.ErrPermission.
func (p *Provider) Verify(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return 0, zerr.Wrap(model.ErrPermission, "invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, zerr.Wrap(model.ErrPermission, "invalid token")
	}

	ownerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, zerr.Wrap(model.ErrPermission, "invalid token subject")
	}
	return ownerID, nil
}
