package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Claims carried by a storefront access token
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

// Creator signs and verifies HS256 access tokens
type Creator struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	nowTime func() time.Time
}

type CreatorOption func(*Creator)

// WithNowTime sets the clock used for iat/exp and validation (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CreatorOption {
	return func(c *Creator) {
		c.nowTime = nowFunc
	}
}

// NewCreator creates a new JWT creator
func NewCreator(secret, issuer string, ttl time.Duration, options ...CreatorOption) (*Creator, error) {
	if secret == "" {
		return nil, errors.New("[NewCreator] signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewCreator] token ttl must be positive")
	}
	c := &Creator{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// CreateAccessToken signs a token for userID
func (c *Creator) CreateAccessToken(userID, email, role string) (string, *Claims, error) {
	now := c.nowTime()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    c.issuer,                              // The issuer of the token
			Subject:   userID,                                // The user the token was issued to
			IssuedAt:  jwtlib.NewNumericDate(now),            // Issued At: the time at which the token was issued
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.ttl)), // Expiry: when the token will expire
			ID:        uuid.New().String(),                   // Unique token ID for revocation
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature, issuer and expiry of raw
func (c *Creator) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(c.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.nowTime),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
