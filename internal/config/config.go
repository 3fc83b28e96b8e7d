package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

const configFileVar = "STOREFRONT_CONFIG"

type Config interface {
	EnvConfig
	ClientConfig
	CredentialConfig
	MockServerConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Client
	Credentials
	MockServer
	Cors
}

// New reads configuration from the environment, overlaid on the optional
// YAML file named by STOREFRONT_CONFIG. A file that cannot be read is logged
// and ignored.
func New() Config {
	path := GetEnv(configFileVar, "")
	if path == "" {
		return fromFile(&FileConfig{})
	}
	c, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring config file")
		return fromFile(&FileConfig{})
	}
	return c
}

// Load reads the YAML file at path. Environment variables still take
// precedence over values from the file.
func Load(path string) (Config, error) {
	fc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fromFile(fc), nil
}

func fromFile(fc *FileConfig) Config {
	return mainConfig{
		EnvVars:     EnvVars{file: fc},
		Client:      Client{file: fc},
		Credentials: Credentials{file: fc},
		MockServer:  MockServer{file: fc},
		Cors:        Cors{file: fc},
	}
}
