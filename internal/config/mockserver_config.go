package config

import "time"

type MockServerConfig interface {
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenLength() int
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetDemoEmail() string
	GetDemoPassword() string
}

type MockServer struct {
	file *FileConfig
}

var _ MockServerConfig = MockServer{}

func (m MockServer) GetJWTSecret() string {
	return lookup("MOCK_JWT_SECRET", orEmpty(m.file).MockServer.JWTSecret, "storefront-dev-secret")
}

func (m MockServer) GetAccessTokenTTL() time.Duration {
	return lookupDuration("MOCK_TOKEN_TTL", orEmpty(m.file).MockServer.TokenTTL, time.Hour)
}

func (MockServer) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (MockServer) GetRefreshTokenTTL() time.Duration {
	return lookupDuration("MOCK_REFRESH_TTL", "", 7*24*time.Hour)
}

func (MockServer) GetIssuer() string {
	return GetEnv("MOCK_ISSUER", "storefront-mock")
}

// GetDemoEmail and GetDemoPassword name an account seeded at start-up.
// Nothing is seeded when either is empty.
func (m MockServer) GetDemoEmail() string {
	return lookup("MOCK_DEMO_EMAIL", orEmpty(m.file).MockServer.DemoEmail, "")
}

func (m MockServer) GetDemoPassword() string {
	return lookup("MOCK_DEMO_PASSWORD", orEmpty(m.file).MockServer.DemoPassword, "")
}
