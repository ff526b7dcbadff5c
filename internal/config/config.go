package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Sync    SyncConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// AIConfig holds the vision/chat model configuration
type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// StorageConfig holds local data and blob storage configuration
type StorageConfig struct {
	DataDir        string
	EncryptionKey  string // optional, 32 bytes enables at-rest encryption
	AccountName    string
	AccountKey     string
	ImageContainer string
}

// SyncConfig holds cloud sync configuration
type SyncConfig struct {
	DatabaseURL string // when set, records sync to Postgres
	Simulated   bool   // when true, sync is simulated with randomized latency
	Online      bool   // initial connectivity state for the simulated syncer
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	v.SetDefault("ai.model", "gpt-4o-mini")

	v.SetDefault("storage.datadir", "./data")
	v.SetDefault("storage.imagecontainer", "scan-images")

	v.SetDefault("sync.simulated", true)
	v.SetDefault("sync.online", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	v.BindEnv("ai.baseurl", "AI_BASE_URL")
	v.BindEnv("ai.apikey", "AI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	v.BindEnv("storage.datadir", "DATA_DIR")
	v.BindEnv("storage.encryptionkey", "DATA_ENCRYPTION_KEY")
	v.BindEnv("storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("storage.imagecontainer", "AZURE_STORAGE_IMAGE_CONTAINER")

	v.BindEnv("sync.databaseurl", "DATABASE_URL")
	v.BindEnv("sync.simulated", "SYNC_SIMULATED")
	v.BindEnv("sync.online", "SYNC_ONLINE")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.apikey is required")
	}

	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.datadir is required")
	}

	if c.Storage.EncryptionKey != "" && len(c.Storage.EncryptionKey) != 32 {
		return fmt.Errorf("storage.encryptionkey must be exactly 32 bytes")
	}

	if !c.Sync.Simulated && c.Sync.DatabaseURL == "" {
		return fmt.Errorf("sync.databaseurl is required when sync is not simulated")
	}

	return nil
}
