package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/guilded-university/tokenvault/internal/keymaterial"
	"github.com/guilded-university/tokenvault/internal/tokencipher"
	"github.com/guilded-university/tokenvault/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTel LogFormat = "otel"
)

// KeySourceType represents where the encryption key and nonce are read from.
type KeySourceType string

const (
	KeySourceEnv     KeySourceType = "env"
	KeySourceKeyring KeySourceType = "keyring"
	KeySourceStatic  KeySourceType = "static"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigEnvFile         = ".env"
	DefaultConfigTokenFile       = tokenstore.DefaultPath
	DefaultConfigKeySource       = KeySourceEnv
	DefaultConfigKeyName         = keymaterial.DefaultKeyName
	DefaultConfigNonceName       = keymaterial.DefaultNonceName
	DefaultConfigKeyringService  = "tokenvault"
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 4100
	DefaultConfigShutdownTimeout = 5 * time.Second
)

// TokenConfig describes the token file.
type TokenConfig struct {
	File string `json:"file" validate:"required"`
	// CreateDirs creates missing parent directories on write.
	CreateDirs bool `json:"create_dirs"`
	// StrictPermissions refuses to read token files that are not 0600.
	StrictPermissions bool `json:"strict_permissions"`
}

// EncryptionConfig describes where key material comes from.
type EncryptionConfig struct {
	Source    KeySourceType `json:"source" validate:"required,oneof=env keyring static"`
	KeyName   string        `json:"key_name" validate:"required"`
	NonceName string        `json:"nonce_name" validate:"required,nefield=KeyName"`

	// For keyring source: service the key and nonce entries are stored under
	KeyringService string `json:"keyring_service,omitempty"`

	// For static source: raw key and nonce, validated on use
	Key   string `json:"key,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel   slog.Level       `json:"log_level"`
	LogFormat  LogFormat        `json:"log_format" validate:"oneof=text json otel"`
	EnvFile    string           `json:"env_file"`
	Token      TokenConfig      `json:"token"`
	Encryption EncryptionConfig `json:"encryption"`
	Server     ServerConfig     `json:"server"`
	Shutdown   ShutdownConfig   `json:"shutdown"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.EnvFile == "" {
		c.EnvFile = DefaultConfigEnvFile
	}
	if c.Token.File == "" {
		c.Token.File = DefaultConfigTokenFile
	}
	if c.Encryption.Source == "" {
		c.Encryption.Source = DefaultConfigKeySource
	}
	if c.Encryption.KeyName == "" {
		c.Encryption.KeyName = DefaultConfigKeyName
	}
	if c.Encryption.NonceName == "" {
		c.Encryption.NonceName = DefaultConfigNonceName
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	// Dynamic defaults based on key source
	switch c.Encryption.Source {
	case KeySourceKeyring:
		if c.Encryption.KeyringService == "" {
			c.Encryption.KeyringService = DefaultConfigKeyringService
		}
	case KeySourceEnv, KeySourceStatic:
		// names are enough, values are checked on every operation
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
// Key and nonce values are not checked here: a missing or malformed pair is
// reported by the operation that needs it.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Encryption.Source == KeySourceKeyring && c.Encryption.KeyringService == "" {
		return errors.New("keyring_service required for keyring key source")
	}

	return nil
}

// NewKeySource creates the key material Source described by the configuration.
func (e *EncryptionConfig) NewKeySource() (keymaterial.Source, error) {
	switch e.Source {
	case KeySourceEnv:
		return keymaterial.NewEnvSource(), nil
	case KeySourceKeyring:
		return keymaterial.NewKeyringSource(e.KeyringService)
	case KeySourceStatic:
		return keymaterial.NewStaticSource(map[string]string{
			e.KeyName:   e.Key,
			e.NonceName: e.Nonce,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported key source: %s", e.Source)
	}
}

// NewTokenStore creates the encrypted file store described by the configuration.
func (c *Config) NewTokenStore() (*tokenstore.FileStore, error) {
	source, err := c.Encryption.NewKeySource()
	if err != nil {
		return nil, fmt.Errorf("failed to create key source: %w", err)
	}

	provider, err := keymaterial.NewProvider(source,
		keymaterial.WithKeyName(c.Encryption.KeyName),
		keymaterial.WithNonceName(c.Encryption.NonceName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key provider: %w", err)
	}

	cipher, err := tokencipher.New(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	var opts []tokenstore.FileOption
	if c.Token.CreateDirs {
		opts = append(opts, tokenstore.WithCreateDirs())
	}
	if c.Token.StrictPermissions {
		opts = append(opts, tokenstore.WithStrictPermissions())
	}

	return tokenstore.NewFileStore(c.Token.File, cipher, opts...)
}
