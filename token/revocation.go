package token

import (
	"sync"
	"time"
)

// RevocationList remembers access tokens ended by logout until they would
// have expired on their own.
type RevocationList interface {
	Revoke(jti string, expiresAt time.Time) error
	IsRevoked(jti string, now time.Time) bool
	Sweep(now time.Time) int
}

type memRevocationList struct {
	lock    sync.Mutex
	expires map[string]time.Time
}

// NewRevocationList creates an in-memory RevocationList.
func NewRevocationList() RevocationList {
	return &memRevocationList{expires: make(map[string]time.Time)}
}

func (l *memRevocationList) Revoke(jti string, expiresAt time.Time) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.expires[jti] = expiresAt
	return nil
}

// IsRevoked drops the entry for jti once its token is past expiry; the JWT
// check rejects it from then on.
func (l *memRevocationList) IsRevoked(jti string, now time.Time) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	exp, ok := l.expires[jti]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(l.expires, jti)
		return false
	}
	return true
}

// Sweep removes every expired entry and returns how many remain.
func (l *memRevocationList) Sweep(now time.Time) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	for jti, exp := range l.expires {
		if now.After(exp) {
			delete(l.expires, jti)
		}
	}
	return len(l.expires)
}
