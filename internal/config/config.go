package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/storage"
)

// EnvPrefix prefixes every environment variable read by the server
const EnvPrefix = "CODEID_REGISTRY"

// ConfigFileEnvVar names the variable that can point at a config file
const ConfigFileEnvVar = EnvPrefix + "_CONFIG_FILE"

// Auth types
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthHeader = "header" // caller taken from X-Registry-Caller, development only
)

// Config holds all configuration for the server
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Registry RegistryConfig `mapstructure:"registry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Host      string `mapstructure:"host"`
	RateLimit int    `mapstructure:"rate_limit"` // requests per minute per client
}

// StorageConfig holds storage configuration (URI-based)
type StorageConfig struct {
	URI   string `mapstructure:"uri"`   // Storage URI (e.g., sqlite://./data/registry.db)
	Token string `mapstructure:"token"` // Opaque token for storage authentication
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type      string `mapstructure:"type"`       // none | basic | header
	UsersFile string `mapstructure:"users_file"` // credentials file for basic auth
}

// RegistryConfig holds the registry bootstrap settings
type RegistryConfig struct {
	Admin           string `mapstructure:"admin"`            // instantiated on start-up when set
	IdentityPattern string `mapstructure:"identity_pattern"` // regexp for admin identities
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
}

// Load reads .env files, environment variables and the optional config file.
// Environment variables override the file, which overrides defaults.
func Load(configFile string) (*Config, error) {
	LoadEnvFiles(".env", ".env.local")

	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return LoadWithViper(v)
}

// LoadEnvFiles loads the given .env files when they exist. Variables already
// set in the environment are not overridden.
func LoadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", path, err)
		}
	}
}

// LoadWithViper loads configuration using a pre-configured viper instance
// This allows CLI flags to be bound before loading
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// NewViper creates a new viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("storage.uri", "sqlite://./data/registry.db")
	v.SetDefault("storage.token", "")
	v.SetDefault("auth.type", AuthNone)
	v.SetDefault("auth.users_file", "./credentials.yaml")
	v.SetDefault("registry.admin", "")
	v.SetDefault("registry.identity_pattern", models.DefaultIdentityPattern)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server.rate_limit must be positive")
	}

	if _, err := storage.ParseStorageURI(c.Storage.URI); err != nil {
		return fmt.Errorf("invalid storage URI: %w", err)
	}

	switch c.Auth.Type {
	case AuthNone, AuthBasic, AuthHeader:
	default:
		return fmt.Errorf("auth.type must be 'none', 'basic' or 'header'")
	}
	if c.Auth.Type == AuthBasic && c.Auth.UsersFile == "" {
		return fmt.Errorf("auth.users_file is required when auth.type is 'basic'")
	}

	validator, err := c.IdentityValidator()
	if err != nil {
		return fmt.Errorf("invalid registry.identity_pattern: %w", err)
	}
	if c.Registry.Admin != "" {
		if err := validator.ValidateIdentity(c.Registry.Admin); err != nil {
			return fmt.Errorf("invalid registry.admin: %w", err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text")
	}

	return nil
}

// IdentityValidator returns the validator for registry.identity_pattern
func (c *Config) IdentityValidator() (*models.PatternValidator, error) {
	return models.NewPatternValidator(c.Registry.IdentityPattern)
}

// GetParsedStorageURI returns the parsed storage URI
func (c *Config) GetParsedStorageURI() (*storage.StorageURI, error) {
	return storage.ParseStorageURI(c.Storage.URI)
}

// MaskToken returns a masked version of the storage token for logging
func (c *Config) MaskToken() string {
	if c.Storage.Token == "" {
		return ""
	}
	return "***"
}
