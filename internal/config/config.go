package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"go.yaml.in/yaml/v3"
)

const (
	ProviderRoute53    = "route53"
	ProviderCloudflare = "cloudflare"
)

type Config struct {
	Provider        string        `envconfig:"DDNS_PROVIDER" yaml:"provider"`
	Interval        time.Duration `envconfig:"DDNS_INTERVAL" yaml:"interval"`
	Schedule        string        `envconfig:"DDNS_SCHEDULE" yaml:"schedule"`
	TTL             int64         `envconfig:"DDNS_TTL" yaml:"ttl"`
	IPURL           string        `envconfig:"DDNS_IP_URL" yaml:"ip_url"`
	IP              string        `envconfig:"DDNS_IP" yaml:"ip"`
	Interface       string        `envconfig:"DDNS_INTERFACE" yaml:"interface"`
	Concurrency     int           `envconfig:"DDNS_CONCURRENCY" yaml:"concurrency"`
	Domains         []string      `envconfig:"DDNS_DOMAINS" yaml:"domains"`
	CloudflareToken string        `envconfig:"CLOUDFLARE_API_TOKEN" yaml:"-"`
	KeyFile         string        `envconfig:"DDNS_KEY_FILE" yaml:"key_file"`
	Verbose         bool          `envconfig:"DDNS_VERBOSE" yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:    ProviderRoute53,
		Interval:    5 * time.Minute,
		TTL:         300,
		IPURL:       "https://api.ipify.org",
		Concurrency: 1,
		KeyFile:     filepath.Join(os.Getenv("HOME"), ".cloudflare"),
	}
}

// Load applies the YAML file at path (if any) and then the environment on top of Default.
// An empty path falls back to $DDNS_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("DDNS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderRoute53, ProviderCloudflare:
	default:
		return fmt.Errorf("unknown provider %q; expected %q or %q", c.Provider, ProviderRoute53, ProviderCloudflare)
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1s; got %s", c.Interval)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}
	if c.TTL < 1 {
		return fmt.Errorf("ttl must be at least 1; got %d", c.TTL)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1; got %d", c.Concurrency)
	}
	if c.IP != "" && c.Interface != "" {
		return errors.New("ip and interface cannot both be set")
	}
	if len(c.Domains) == 0 {
		return errors.New("at least one domain is required")
	}
	for _, d := range c.Domains {
		if strings.TrimSpace(d) == "" {
			return errors.New("domains cannot contain an empty entry")
		}
	}
	return nil
}
