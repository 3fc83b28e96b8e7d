package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo    Repo
	length  int
	expiry  time.Duration
	nowTime func() time.Time
}

// NewManager creates a refresh token manager issuing tokens of length
// random bytes that are valid for expiry.
func NewManager(repo Repo, length int, expiry time.Duration, nowTime func() time.Time) *Manager {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Manager{
		repo:    repo,
		length:  length,
		expiry:  expiry,
		nowTime: nowTime,
	}
}

// Create generates a new refresh token for userID, replacing any existing one
func (m *Manager) Create(userID string) (string, error) {
	// Single refresh token per user
	if existing, err := m.repo.GetByUserID(userID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowTime(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Consume validates token and deletes it, returning its record. Refresh
// tokens are single use.
func (m *Manager) Consume(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if m.IsExpired(rt) {
		return nil, fmt.Errorf("refresh token expired: %w", ErrNotFound)
	}
	return rt, nil
}

// DeleteForUser removes the refresh token held by userID, if any
func (m *Manager) DeleteForUser(userID string) error {
	rt, err := m.repo.GetByUserID(userID)
	if err != nil {
		return nil
	}
	return m.repo.Delete(rt.Token)
}

// IsExpired checks if a refresh token has expired
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.expiry > 0 && m.nowTime().Sub(rt.Iat) > m.expiry
}
