// Package config loads and validates the daemon's YAML configuration.
// Validation failures here are the only fatal errors in the system; once
// an engine is built, nothing re-validates.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/penguinvovan/cloudflare-dns/internal/failover"
	"github.com/penguinvovan/cloudflare-dns/internal/probe"
)

type LogFormat string

const (
	LogFormatDefault LogFormat = ""
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

type LogLevel string

const (
	LogLevelDefault LogLevel = ""
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
)

type Config struct {
	Cloudflare CloudflareConfig        `yaml:"cloudflare"`
	Servers    map[string]ServerConfig `yaml:"servers"`
	Monitoring MonitoringConfig        `yaml:"monitoring"`
	DNS        DNSConfig               `yaml:"dns"`
	Log        LogConfig               `yaml:"log,omitempty"`
	Admin      AdminConfig             `yaml:"admin,omitempty"`
}

type CloudflareConfig struct {
	APIToken   string `yaml:"api_token"`
	ZoneID     string `yaml:"zone_id"`
	DomainName string `yaml:"domain_name"`
}

type ServerConfig struct {
	IP       string `yaml:"ip"`
	Port     int    `yaml:"port"`
	Priority int    `yaml:"priority"`
}

type MonitoringConfig struct {
	// CheckIntervalSecs is the delay between evaluation cycles.
	CheckIntervalSecs int `yaml:"check_interval"`

	// TimeoutSecs bounds a single probe.
	TimeoutSecs int `yaml:"timeout"`

	FailureThreshold int    `yaml:"failure_threshold"`
	CheckMethod      string `yaml:"check_method"`
	HTTPCheckPath    string `yaml:"http_check_path"`
}

type DNSConfig struct {
	RecordType string `yaml:"record_type"`
	TTL        int    `yaml:"ttl"`
}

type LogConfig struct {
	Format LogFormat `yaml:"format,omitempty"`
	Level  LogLevel  `yaml:"level,omitempty"`
}

type AdminConfig struct {
	// Addr to serve /health, /status and /metrics on. Empty disables
	// the admin listener.
	Addr string `yaml:"addr,omitempty"`
}

func ParseConfig(configPath string) (Config, error) {
	var conf Config
	byt, err := os.ReadFile(configPath)
	if err != nil {
		return conf, fmt.Errorf("read file: %w", err)
	}
	if err := yaml.Unmarshal(byt, &conf); err != nil {
		return conf, fmt.Errorf("unmarshal: %w", err)
	}
	conf.applyDefaults()
	if err := conf.validate(); err != nil {
		return conf, fmt.Errorf("validate: %w", err)
	}
	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Monitoring.CheckIntervalSecs == 0 {
		c.Monitoring.CheckIntervalSecs = 60
	}
	if c.Monitoring.TimeoutSecs == 0 {
		c.Monitoring.TimeoutSecs = 10
	}
	if c.Monitoring.FailureThreshold == 0 {
		c.Monitoring.FailureThreshold = 3
	}
	if c.Monitoring.CheckMethod == "" {
		c.Monitoring.CheckMethod = string(probe.MethodTCP)
	}
	if c.Monitoring.HTTPCheckPath == "" {
		c.Monitoring.HTTPCheckPath = "/"
	}
	if c.DNS.RecordType == "" {
		c.DNS.RecordType = "A"
	}
	if c.DNS.TTL == 0 {
		c.DNS.TTL = 300
	}
}

func (c *Config) validate() error {
	required := map[string]string{
		"cloudflare.api_token":   c.Cloudflare.APIToken,
		"cloudflare.zone_id":     c.Cloudflare.ZoneID,
		"cloudflare.domain_name": c.Cloudflare.DomainName,
	}
	for key, val := range required {
		if val == "" || strings.HasPrefix(val, "YOUR_") {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if len(c.Servers) < 2 {
		return errors.New("at least two servers must be configured")
	}
	for name, s := range c.Servers {
		if s.IP == "" {
			return fmt.Errorf("server %s: ip must be set", name)
		}
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("server %s: invalid port %d",
				name, s.Port)
		}
	}
	switch probe.Method(c.Monitoring.CheckMethod) {
	case probe.MethodTCP, probe.MethodHTTP:
	default:
		return fmt.Errorf("invalid check_method: %s",
			c.Monitoring.CheckMethod)
	}
	if c.Monitoring.FailureThreshold < 1 {
		return fmt.Errorf("invalid failure_threshold: %d",
			c.Monitoring.FailureThreshold)
	}
	if c.Monitoring.CheckIntervalSecs < 1 {
		return fmt.Errorf("invalid check_interval: %d",
			c.Monitoring.CheckIntervalSecs)
	}
	if c.Monitoring.TimeoutSecs < 1 {
		return fmt.Errorf("invalid timeout: %d", c.Monitoring.TimeoutSecs)
	}
	return nil
}

// ServerSpecs converts the configured server map into the engine's spec
// slice. Order is irrelevant here; the engine sorts by priority.
func (c *Config) ServerSpecs() []failover.ServerSpec {
	specs := make([]failover.ServerSpec, 0, len(c.Servers))
	for name, s := range c.Servers {
		specs = append(specs, failover.ServerSpec{
			Name:     name,
			Addr:     s.IP,
			Port:     s.Port,
			Priority: s.Priority,
		})
	}
	return specs
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Monitoring.CheckIntervalSecs) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Monitoring.TimeoutSecs) * time.Second
}
