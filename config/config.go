package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Minio  MinioConfig  `yaml:"minio"`
	Claude ClaudeConfig `yaml:"claude"`
	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
	Limits LimitsConfig `yaml:"limits"`
	Users  []User       `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type ClaudeConfig struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxEmails int `yaml:"max_emails"`
}

type LimitsConfig struct {
	// ProMonthlyExtractions caps AI extractions per calendar month on the
	// pro tier. Elite is unlimited, free has no access.
	ProMonthlyExtractions int `yaml:"pro_monthly_extractions"`
}

type User struct {
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	Tier              string `yaml:"tier"`
	ForwardingAddress string `yaml:"forwarding_address"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Claude.APIURL == "" {
		cfg.Claude.APIURL = "https://api.anthropic.com"
	}
	if cfg.Claude.Model == "" {
		cfg.Claude.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Claude.MaxTokens == 0 {
		cfg.Claude.MaxTokens = 4096
	}
	if cfg.Store.MaxEmails == 0 {
		cfg.Store.MaxEmails = 500
	}
	if cfg.Limits.ProMonthlyExtractions == 0 {
		cfg.Limits.ProMonthlyExtractions = 50
	}
	for i := range cfg.Users {
		if cfg.Users[i].Tier == "" {
			cfg.Users[i].Tier = "free"
		}
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

// FindUserByForwardingAddress resolves an inbound email recipient to a user.
// Matching is case-insensitive since mail providers vary address casing.
func (c *Config) FindUserByForwardingAddress(address string) *User {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil
	}
	for i := range c.Users {
		if strings.ToLower(c.Users[i].ForwardingAddress) == address {
			return &c.Users[i]
		}
	}
	return nil
}
