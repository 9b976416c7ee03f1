package seeder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete seeder configuration
type Config struct {
	Version  string          `mapstructure:"version" yaml:"version"`
	Defaults DefaultsConfig  `mapstructure:"defaults" yaml:"defaults"`
	Products []ProductConfig `mapstructure:"products" yaml:"products"`
}

// DefaultsConfig holds default seeder settings
type DefaultsConfig struct {
	ServerURL string        `mapstructure:"server_url" yaml:"server_url"`
	Sessions  int           `mapstructure:"sessions" yaml:"sessions"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	Seed      int64         `mapstructure:"seed" yaml:"seed"`
	// ErrorRate is the chance that a session logs a machine fault.
	ErrorRate float64 `mapstructure:"error_rate" yaml:"error_rate"`
}

// ProductConfig is one slot in the simulated machine.
type ProductConfig struct {
	Slot  string  `mapstructure:"slot" yaml:"slot"`
	Name  string  `mapstructure:"name" yaml:"name"`
	Price float64 `mapstructure:"price" yaml:"price"`
}

// LoadConfig loads configuration with cascade: flags > ./seeder.yaml > ~/.vmhist/seeder.yaml > defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("seeder")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SEEDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vmhist"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Products) == 0 {
		config.Products = DefaultProducts()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	v.SetDefault("defaults.server_url", "http://localhost:3000")
	v.SetDefault("defaults.sessions", 10)
	v.SetDefault("defaults.interval", 0)
	v.SetDefault("defaults.seed", 0)
	v.SetDefault("defaults.error_rate", 0.1)
}

// DefaultProducts is the stock used when the config names none.
func DefaultProducts() []ProductConfig {
	return []ProductConfig{
		{Slot: "A1", Name: "Cola", Price: 25},
		{Slot: "A2", Name: "Iced Tea", Price: 20},
		{Slot: "B1", Name: "Potato Chips", Price: 35},
		{Slot: "B2", Name: "Chocolate Bar", Price: 30},
		{Slot: "C1", Name: "Bottled Water", Price: 15},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Defaults.ServerURL == "" {
		return fmt.Errorf("defaults.server_url is required")
	}
	if c.Defaults.Sessions < 0 {
		return fmt.Errorf("defaults.sessions must not be negative")
	}
	if c.Defaults.ErrorRate < 0 || c.Defaults.ErrorRate > 1 {
		return fmt.Errorf("defaults.error_rate must be between 0 and 1")
	}

	seen := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.Slot == "" || p.Name == "" {
			return fmt.Errorf("product %q: slot and name are required", p.Slot)
		}
		if p.Price <= 0 {
			return fmt.Errorf("product %s: price must be positive", p.Slot)
		}
		if seen[p.Slot] {
			return fmt.Errorf("product %s: duplicate slot", p.Slot)
		}
		seen[p.Slot] = true
	}
	return nil
}
