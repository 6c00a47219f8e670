package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "3s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type RegistryConfig struct {
	Dir string `yaml:"dir"`

	// Short TTLs so the user sees new repositories, tags and revisions.
	RegistryTTL   Duration `yaml:"registry_ttl"`
	RepositoryTTL Duration `yaml:"repository_ttl"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type ClientConfig struct {
	ServerURL string   `yaml:"server_url"`
	Timeout   Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	File string `yaml:"file"`
}

// Load reads the config file at path, falling back to ./registree.yml.
// Missing files are fine; defaults and REGISTREE_* environment
// overrides still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Registry: RegistryConfig{
			RegistryTTL:   Duration(3 * time.Second),
			RepositoryTTL: Duration(3 * time.Second),
		},
		Server: ServerConfig{Listen: ":8585"},
		Client: ClientConfig{
			ServerURL: "http://localhost:8585",
			Timeout:   Duration(10 * time.Second),
		},
	}

	explicit := path != ""
	if path == "" {
		path = "registree.yml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to decode config %s: %w", path, err)
		}
		log.Debug("Loaded config file", "path", path)
	case os.IsNotExist(err) && !explicit:
		log.Debug("No config file found, using defaults")
	default:
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REGISTREE_REGISTRY_DIR"); v != "" {
		cfg.Registry.Dir = v
	}
	if v := os.Getenv("REGISTREE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("REGISTREE_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("REGISTREE_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func (c *Config) validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Registry.RegistryTTL < 0 || c.Registry.RepositoryTTL < 0 {
		return fmt.Errorf("registry TTLs must not be negative")
	}
	u, err := url.Parse(c.Client.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.server_url must be a full URL (e.g. 'http://localhost:8585')")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	return nil
}
