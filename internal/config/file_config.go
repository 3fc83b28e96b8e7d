package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the optional YAML configuration file. Durations are
// strings in time.ParseDuration format.
type FileConfig struct {
	AppName  string `yaml:"app_name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`

	Credentials struct {
		Store string `yaml:"store"`
		File  string `yaml:"file"`
		Redis struct {
			Addr      string `yaml:"addr"`
			Password  string `yaml:"password"`
			DB        int    `yaml:"db"`
			Namespace string `yaml:"namespace"`
		} `yaml:"redis"`
	} `yaml:"credentials"`

	MockServer struct {
		Port           string   `yaml:"port"`
		JWTSecret      string   `yaml:"jwt_secret"`
		TokenTTL       string   `yaml:"token_ttl"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		DemoEmail      string   `yaml:"demo_email"`
		DemoPassword   string   `yaml:"demo_password"`
	} `yaml:"mock_server"`
}

func ReadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func orEmpty(fc *FileConfig) *FileConfig {
	if fc == nil {
		return &FileConfig{}
	}
	return fc
}
