package token

import (
	"time"

	"github.com/jrsteele09/go-storefront-client/token/jwt"
	"github.com/jrsteele09/go-storefront-client/token/refresh"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrRevoked = errors.New("token has been revoked")

// Pair is what a successful login or refresh hands to the client.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Manager issues, verifies and revokes the mock server's tokens
type Manager struct {
	creator      *jwt.Creator
	refresh      *refresh.Manager
	revoked      RevocationList
	nowTime      func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = now
	}
}

// NewManager creates a token manager. The creator and refresh manager
// should share the same clock as now.
func NewManager(creator *jwt.Creator, refreshManager *refresh.Manager, revoked RevocationList, options ...ManagerOption) (*Manager, error) {
	if creator == nil {
		return nil, errors.New("[token.NewManager] creator is required")
	}
	if refreshManager == nil {
		return nil, errors.New("[token.NewManager] refresh manager is required")
	}
	if revoked == nil {
		revoked = NewRevocationList()
	}
	m := &Manager{
		creator:      creator,
		refresh:      refreshManager,
		revoked:      revoked,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Issue creates an access token and a fresh refresh token for the user
func (m *Manager) Issue(userID, email, role string) (*Pair, error) {
	access, claims, err := m.creator.CreateAccessToken(userID, email, role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.refresh.Create(userID)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// Verify returns the claims of a valid, unrevoked access token
func (m *Manager) Verify(access string) (*jwt.Claims, error) {
	claims, err := m.creator.Parse(access)
	if err != nil {
		return nil, err
	}
	if m.revoked.IsRevoked(claims.ID, m.nowTime()) {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke invalidates an access token and its user's refresh token
func (m *Manager) Revoke(claims *jwt.Claims) error {
	if err := m.revoked.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
		return errors.Wrap(err, "revoke access token")
	}
	if n := m.revoked.Sweep(m.nowTime()); n > 0 {
		log.Debug().Int("revoked", n).Msg("access tokens awaiting expiry")
	}
	return m.refresh.DeleteForUser(claims.Subject)
}

// Refresh exchanges a refresh token for a new pair. The old refresh
// token cannot be used again.
func (m *Manager) Refresh(refreshToken string, lookup func(userID string) (email, role string, err error)) (*Pair, string, error) {
	rt, err := m.refresh.Consume(refreshToken)
	if err != nil {
		return nil, "", err
	}
	email, role, err := lookup(rt.UserID)
	if err != nil {
		return nil, "", err
	}
	pair, err := m.Issue(rt.UserID, email, role)
	if err != nil {
		return nil, "", err
	}
	return pair, rt.UserID, nil
}
