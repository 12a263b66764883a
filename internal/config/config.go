package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable overriding the config file location.
const EnvPath = "ASYNCSOAP_CONFIG"

// DefaultPath is used when neither a flag nor EnvPath names a file.
const DefaultPath = "asyncsoap.yaml"

// Duration accepts "5s" style strings in YAML and JSON, and plain numbers as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*d = Duration(t * float64(time.Second))
		return nil
	case string:
		return d.parse(t)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// RateLimit bounds outgoing calls.
type RateLimit struct {
	RPS   float64 `yaml:"rps" json:"rps"`
	Burst int     `yaml:"burst" json:"burst"`
}

// Cache configures the shared WSDL cache.
type Cache struct {
	RedisAddr     string   `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string   `yaml:"redis_password" json:"redis_password"`
	RedisDB       int      `yaml:"redis_db" json:"redis_db"`
	TTL           Duration `yaml:"ttl" json:"ttl"`
	Prefix        string   `yaml:"prefix" json:"prefix"`
}

// Enabled reports whether a Redis address is configured.
func (c Cache) Enabled() bool {
	return c.RedisAddr != ""
}

// Gateway configures the HTTP gateway.
type Gateway struct {
	Port    int  `yaml:"port" json:"port"`
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// Config represents the structure of asyncsoap.yaml.
type Config struct {
	WSDL        string            `yaml:"wsdl" json:"wsdl"`
	Location    string            `yaml:"location" json:"location"`
	URI         string            `yaml:"uri" json:"uri"`
	SOAPVersion string            `yaml:"soap_version" json:"soap_version"`
	Style       string            `yaml:"style" json:"style"`
	Timeout     Duration          `yaml:"timeout" json:"timeout"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	RateLimit   RateLimit         `yaml:"rate_limit" json:"rate_limit"`
	Cache       Cache             `yaml:"cache" json:"cache"`
	Gateway     Gateway           `yaml:"gateway" json:"gateway"`
	LogLevel    string            `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		SOAPVersion: "1.1",
		Timeout:     Duration(30 * time.Second),
		Cache: Cache{
			TTL:    Duration(time.Hour),
			Prefix: "asyncsoap:wsdl:",
		},
		Gateway:  Gateway{Port: 8080},
		LogLevel: "info",
	}
}

// Path resolves the config file: an explicit path wins, then EnvPath, then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads a configuration file (YAML or JSON) over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.SOAPVersion {
	case "", "1.1", "1.2":
	default:
		errs = append(errs, fmt.Errorf("soap_version must be 1.1 or 1.2, got %q", c.SOAPVersion))
	}
	switch c.Style {
	case "", "document", "rpc":
	default:
		errs = append(errs, fmt.Errorf("style must be document or rpc, got %q", c.Style))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port))
	}
	return errors.Join(errs...)
}

// ClientOptions returns the options handed to the client factory.
// location and uri are only set when configured, so WSDL mode keeps the
// document's endpoint and non-WSDL mode reports what is missing.
func (c *Config) ClientOptions() domain.Options {
	opts := domain.Options{}
	if c.Location != "" {
		opts[domain.OptionLocation] = c.Location
	}
	if c.URI != "" {
		opts[domain.OptionURI] = c.URI
	}
	if c.SOAPVersion != "" {
		opts["soap_version"] = c.SOAPVersion
	}
	if c.Style != "" {
		opts["style"] = c.Style
	}
	return opts
}

// RequestOptions returns the default transport options for every call.
func (c *Config) RequestOptions() map[string]any {
	opts := map[string]any{}
	if len(c.Headers) > 0 {
		headers := make(map[string]any, len(c.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		opts["headers"] = headers
	}
	return opts
}
