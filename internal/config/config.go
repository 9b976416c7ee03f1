package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// StaticDir is served at "/" when it exists.
	StaticDir string `mapstructure:"static_dir"`
}

type StorageConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	JSONFile string `mapstructure:"json_file"`
	TextFile string `mapstructure:"text_file"`
}

// JSONPath is the location of the history document.
func (s StorageConfig) JSONPath() string {
	return filepath.Join(s.DataDir, s.JSONFile)
}

// TextPath is the location of the mirror transcript.
func (s StorageConfig) TextPath() string {
	return filepath.Join(s.DataDir, s.TextFile)
}

type MirrorConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

type IngestionConfig struct {
	MaxEventSize      int64         `mapstructure:"max_event_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Enabled       bool   `mapstructure:"enabled"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix is prepended to every environment override, e.g.
// VMHISTORY_STORAGE_DATA_DIR.
const EnvPrefix = "VMHISTORY"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.static_dir", "./public")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.json_file", "machine_history.json")
	v.SetDefault("storage.text_file", "machine_history.txt")
	v.SetDefault("mirror.currency_symbol", "₱")
	v.SetDefault("ingestion.max_event_size", 1048576)
	v.SetDefault("ingestion.rate_limit_enabled", false)
	v.SetDefault("ingestion.rate_limit_requests", 600)
	v.SetDefault("ingestion.rate_limit_window", "1m")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject_prefix", "vending.history")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vmhistory")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Plain PORT keeps working for existing launch scripts.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind port env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.JSONFile == "" || c.Storage.TextFile == "" {
		return fmt.Errorf("storage.json_file and storage.text_file must not be empty")
	}
	if c.Storage.JSONFile == c.Storage.TextFile {
		return fmt.Errorf("storage.json_file and storage.text_file must differ")
	}
	if c.Ingestion.MaxEventSize <= 0 {
		return fmt.Errorf("ingestion.max_event_size must be positive")
	}
	if c.Ingestion.RateLimitEnabled && (c.Ingestion.RateLimitRequests <= 0 || c.Ingestion.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limiting needs positive ingestion.rate_limit_requests and ingestion.rate_limit_window")
	}
	return nil
}
