package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LinkConfig is the on-disk shape shared by linkctl and configgen.
type LinkConfig struct {
	Name           string   `toml:"name" yaml:"name"`
	Transport      string   `toml:"transport,omitempty" yaml:"transport,omitempty"`
	ListenAddr     string   `toml:"listen_addr" yaml:"listen_addr"`
	Origin         string   `toml:"origin" yaml:"origin"`
	TargetOrigin   string   `toml:"target_origin" yaml:"target_origin"`
	AppSID         string   `toml:"app_sid" yaml:"app_sid"`
	Path           string   `toml:"path" yaml:"path"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	SafelyTimeMS   int      `toml:"safely_time_ms" yaml:"safely_time_ms"`
	TimeoutMS      int      `toml:"timeout_ms" yaml:"timeout_ms"`
	LogLevel       string   `toml:"log_level" yaml:"log_level"`
	Token          string   `toml:"token,omitempty" yaml:"token,omitempty"`
}

// LoadLinkConfig reads TOML, or YAML for .yaml/.yml paths, and applies defaults.
func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadFile(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "linkctl"
	}
	if cfg.Path == "" {
		cfg.Path = "/messages"
	}
	if cfg.SafelyTimeMS == 0 {
		cfg.SafelyTimeMS = 900
	}
	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func loadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = toml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("link config missing name")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("link config missing listen_addr")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case "", "http", "tcp":
	default:
		return fmt.Errorf("link config transport must be http or tcp: %q", cfg.Transport)
	}
	if err := validateOrigin("origin", cfg.Origin); err != nil {
		return err
	}
	if err := validateOrigin("target_origin", cfg.TargetOrigin); err != nil {
		return err
	}
	for i, o := range cfg.AllowedOrigins {
		if err := validateOrigin(fmt.Sprintf("allowed_origins[%d]", i), o); err != nil {
			return err
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.Path), "/") {
		return fmt.Errorf("link config path must start with /")
	}
	if cfg.SafelyTimeMS < 0 {
		return fmt.Errorf("link config safely_time_ms must not be negative")
	}
	if cfg.TimeoutMS < 0 {
		return fmt.Errorf("link config timeout_ms must not be negative")
	}
	return nil
}

func validateOrigin(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("link config missing %s", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("link config %s invalid: %w", field, err)
	}
	switch u.Scheme {
	case "http", "https", "tcp":
	default:
		return fmt.Errorf("link config %s must be http(s) or tcp: %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("link config %s missing host: %q", field, raw)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("link config %s must be an origin without path: %q", field, raw)
	}
	return nil
}

// Marshal renders cfg as TOML.
func Marshal(cfg LinkConfig) ([]byte, error) {
	return toml.Marshal(cfg)
}
