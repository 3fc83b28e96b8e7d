package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-storefront-client/internal/config"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app_name: Course Shop
api:
  base_url: http://api.from-file.test
  timeout: 3s
credentials:
  store: redis
  redis:
    addr: redis.internal:6380
    db: 2
mock_server:
  port: "9000"
  allowed_origins: ["http://a.test", "http://b.test"]
`

func writeConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("STOREFRONT_API_URL", "")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "")
	t.Setenv("STOREFRONT_CREDENTIAL_STORE", "")
	t.Setenv("PORT", "")

	c := config.New()
	require.Equal(t, "https://udemy-clone-api-rbe6.onrender.com", c.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StoreFile, c.GetCredentialStore())
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "credentials.json", filepath.Base(c.GetCredentialFile()))
}

func TestLoad_FileValues(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "")
	t.Setenv("STOREFRONT_CREDENTIAL_STORE", "")
	t.Setenv("STOREFRONT_REDIS_ADDR", "")
	t.Setenv("STOREFRONT_REDIS_DB", "")
	t.Setenv("MOCK_ALLOWED_ORIGINS", "")
	t.Setenv("APP_NAME", "")
	t.Setenv("PORT", "")

	c, err := config.Load(writeConfigFile(t))
	require.NoError(t, err)

	require.Equal(t, "Course Shop", c.GetAppName())
	require.Equal(t, "http://api.from-file.test", c.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StoreRedis, c.GetCredentialStore())
	require.Equal(t, "redis.internal:6380", c.GetRedisAddr())
	require.Equal(t, 2, c.GetRedisDB())
	require.Equal(t, ":9000", c.GetPort())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://b.test"))
	require.Equal(t, "http://a.test, http://b.test", c.GetAllowedOrigins().String())
}

func TestLoad_EnvironmentWins(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://api.from-env.test")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "not-a-duration")

	c, err := config.Load(writeConfigFile(t))
	require.NoError(t, err)
	require.Equal(t, "http://api.from-env.test", c.GetAPIBaseURL())
	// An unparseable duration falls back to the default, not the file value.
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
