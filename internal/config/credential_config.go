package config

import (
	"os"
	"path/filepath"
)

const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type CredentialConfig interface {
	GetCredentialStore() string
	GetCredentialFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisNamespace() string
}

type Credentials struct {
	file *FileConfig
}

var _ CredentialConfig = Credentials{}

// GetCredentialStore selects where the auth token and user record are kept.
func (c Credentials) GetCredentialStore() string {
	return lookup("STOREFRONT_CREDENTIAL_STORE", orEmpty(c.file).Credentials.Store, StoreFile)
}

func (c Credentials) GetCredentialFile() string {
	return lookup("STOREFRONT_CREDENTIAL_FILE", orEmpty(c.file).Credentials.File, defaultCredentialFile())
}

func (c Credentials) GetRedisAddr() string {
	return lookup("STOREFRONT_REDIS_ADDR", orEmpty(c.file).Credentials.Redis.Addr, "localhost:6379")
}

func (c Credentials) GetRedisPassword() string {
	return lookup("STOREFRONT_REDIS_PASSWORD", orEmpty(c.file).Credentials.Redis.Password, "")
}

func (c Credentials) GetRedisDB() int {
	return lookupInt("STOREFRONT_REDIS_DB", orEmpty(c.file).Credentials.Redis.DB, 0)
}

func (c Credentials) GetRedisNamespace() string {
	return lookup("STOREFRONT_REDIS_NAMESPACE", orEmpty(c.file).Credentials.Redis.Namespace, "storefront")
}

func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "storefront", "credentials.json")
}
