package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	logLevelVar    = "STOREFRONT_LOG_LEVEL"
	apiBaseURLVar  = "STOREFRONT_API_URL"
	reqTimeoutVar  = "STOREFRONT_REQUEST_TIMEOUT"
	defaultBaseURL = "https://udemy-clone-api-rbe6.onrender.com"
)

type EnvVars struct {
	file *FileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := lookup(portEnvVar, orEmpty(e.file).MockServer.Port, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, orEmpty(e.file).AppName, "Storefront")
}

func (e EnvVars) GetLogLevel() string {
	return lookup(logLevelVar, orEmpty(e.file).LogLevel, "info")
}

func (e EnvVars) GetEnv() string {
	return lookup("ENV", orEmpty(e.file).Env, "DEV")
}

type Client struct {
	file *FileConfig
}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the origin of the storefront REST API, without the /api prefix.
func (c Client) GetAPIBaseURL() string {
	return lookup(apiBaseURLVar, orEmpty(c.file).API.BaseURL, defaultBaseURL)
}

func (c Client) GetRequestTimeout() time.Duration {
	return lookupDuration(reqTimeoutVar, orEmpty(c.file).API.Timeout, 15*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// lookup prefers the environment, then the config file, then the default.
func lookup(envVar, fileValue, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func lookupDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	raw := lookup(envVar, fileValue, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func lookupInt(envVar string, fileValue, defaultValue int) int {
	if raw := os.Getenv(envVar); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}
