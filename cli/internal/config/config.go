package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is used when neither a profile nor the environment names a server.
const DefaultServerURL = "http://localhost:3000"

// ServerURLEnv overrides the default server URL.
const ServerURLEnv = "VMHIST_SERVER_URL"

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	Defaults       Defaults            `yaml:"defaults"`
	path           string
}

// Profile points the CLI at one machine's history service.
type Profile struct {
	ServerURL string `yaml:"server_url"`
	// Machine is a free-form label shown by "profile list".
	Machine string `yaml:"machine,omitempty"`
}

type Defaults struct {
	ServerURL string `yaml:"server_url"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
		Defaults: Defaults{
			ServerURL: DefaultServerURL,
		},
	}
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vmhist", "config.yaml"), nil
}

func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	if url := os.Getenv(ServerURLEnv); url != "" {
		cfg.Defaults.ServerURL = url
	}
	if cfg.Defaults.ServerURL == "" {
		cfg.Defaults.ServerURL = DefaultServerURL
	}

	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// Path is where Save writes.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) SaveProfile(name, serverURL, machine string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}

	c.Profiles[name] = &Profile{
		ServerURL: serverURL,
		Machine:   machine,
	}

	c.CurrentProfile = name
	return c.Save()
}

func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	return profile, nil
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.Save()
}

// ServerURL resolves the server for profile, falling back to the defaults.
func (c *Config) ServerURL(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.ServerURL != "" {
		return p.ServerURL
	}
	return c.Defaults.ServerURL
}
