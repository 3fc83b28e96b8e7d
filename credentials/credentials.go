package credentials

// Key names an entry in the credential store.
type Key string

// Canonical keys. These are the only keys the session manager writes.
const (
	KeyAuthToken    Key = "authToken"
	KeyRefreshToken Key = "refreshToken"
	KeyUser         Key = "user"
)

// LegacyTokenKeys are alternate token locations written by older clients.
// They are read when no canonical token is present, never written.
var LegacyTokenKeys = []Key{"token", "accessToken", "jwt", "auth_token"}

// Keys is the fixed set removed by Store.ClearAll.
var Keys = []Key{KeyAuthToken, KeyRefreshToken, KeyUser}

// Store is a synchronous key/value store for the session credential.
// Writes are visible to the next read from the same process.
type Store interface {
	// Get returns the value for key. Unreadable entries report as absent.
	Get(key Key) (string, bool)
	// Set writes value under key. Failures are returned so callers can
	// report a credential that could not be persisted.
	Set(key Key, value string) error
	// Remove deletes key. Failures are logged, not returned.
	Remove(key Key)
	// ClearAll removes every key in Keys.
	ClearAll()
}

// Purge clears the canonical keys and any legacy token keys.
func Purge(store Store) {
	store.ClearAll()
	for _, k := range LegacyTokenKeys {
		store.Remove(k)
	}
}

// LookupToken returns the canonical token, falling back to the legacy keys in order.
func LookupToken(store Store) (string, Key, bool) {
	if token, ok := store.Get(KeyAuthToken); ok && token != "" {
		return token, KeyAuthToken, true
	}
	for _, k := range LegacyTokenKeys {
		if token, ok := store.Get(k); ok && token != "" {
			return token, k, true
		}
	}
	return "", "", false
}
