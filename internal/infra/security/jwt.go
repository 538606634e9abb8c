package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/infra/config"
)

var (
	// ErrInvalidAccessToken indicates the access token is malformed or its signature failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// AccessTokenClaims is the claim shape carried by both token kinds:
// {sub, email, role, jti, iat, exp}.
type AccessTokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 tokens. Access and refresh tokens are
// signed with independent secrets so a leaked access secret cannot forge
// refresh material.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenIssuer constructs a TokenIssuer from startup configuration.
// Missing secrets fail here, before any request is served.
func NewTokenIssuer(appName string, cfg config.JWTSettings) (*TokenIssuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" {
		return nil, fmt.Errorf("%w: access", config.ErrMissingSecret)
	}
	if strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, fmt.Errorf("%w: refresh", config.ErrMissingSecret)
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        appName,
	}, nil
}

// AccessTokenTTL exposes the configured access token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

// RefreshTokenTTL exposes the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}

// IssueAccessToken signs a short-lived stateless access token for the user.
func (i *TokenIssuer) IssueAccessToken(user domain.User) (string, error) {
	return i.sign(user, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token with the refresh secret.
// The signature is a secondary defence; a refresh token is only valid while
// its record exists in the store.
func (i *TokenIssuer) IssueRefreshToken(user domain.User) (string, error) {
	return i.sign(user, i.refreshSecret, i.refreshTTL)
}

func (i *TokenIssuer) sign(user domain.User, secret []byte, ttl time.Duration) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user id is required")
	}

	// The jti makes every minted token distinct even within one clock
	// second: refresh rotation relies on the successor never colliding
	// with the consumed token, and the token_hash column is unique.
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken validates an access token by signature and expiry only.
// Access tokens are stateless; no store lookup happens here.
func (i *TokenIssuer) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidAccessToken
	}
	if _, err := domain.ParseRole(claims.Role); err != nil {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
