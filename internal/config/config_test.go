package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/internal/config"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "asyncsoap.yaml", `
wsdl: https://www.crcind.com/csp/samples/SOAP.Demo.CLS?WSDL=1
soap_version: "1.2"
timeout: 5s
headers:
  X-Tenant: acme
rate_limit:
  rps: 10
  burst: 2
cache:
  redis_addr: localhost:6379
  ttl: 90
gateway:
  port: 9090
  metrics: true
log_level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2", cfg.SOAPVersion)
	assert.Equal(t, config.Duration(5*time.Second), cfg.Timeout)
	assert.Equal(t, config.RateLimit{RPS: 10, Burst: 2}, cfg.RateLimit)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, config.Duration(90*time.Second), cfg.Cache.TTL)
	assert.Equal(t, "asyncsoap:wsdl:", cfg.Cache.Prefix, "defaults survive partial sections")
	assert.Equal(t, config.Gateway{Port: 9090, Metrics: true}, cfg.Gateway)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[string]any{"headers": map[string]any{"X-Tenant": "acme"}}, cfg.RequestOptions())
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "asyncsoap.json", `{
  "location": "http://localhost/echo",
  "uri": "urn:echo",
  "style": "rpc",
  "timeout": 2.5
}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Duration(2500*time.Millisecond), cfg.Timeout)
	assert.Equal(t, domain.Options{
		domain.OptionLocation: "http://localhost/echo",
		domain.OptionURI:      "urn:echo",
		"soap_version":        "1.1",
		"style":               "rpc",
	}, cfg.ClientOptions())
	assert.Empty(t, cfg.RequestOptions())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.False(t, cfg.Cache.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "wsdl: [", "failed to parse"},
		{"bad json", "c.json", "{", "failed to parse"},
		{"bad duration", "c.yaml", "timeout: soon", "invalid duration"},
		{"bad version", "c.yaml", `soap_version: "2.0"`, "soap_version"},
		{"bad style", "c.yaml", "style: literal", "style"},
		{"bad port", "c.yaml", "gateway:\n  port: 70000", "gateway.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	assert.Equal(t, config.DefaultPath, config.Path(""))

	t.Setenv(config.EnvPath, "/etc/asyncsoap.yaml")
	assert.Equal(t, "/etc/asyncsoap.yaml", config.Path(""))
	assert.Equal(t, "local.yaml", config.Path("local.yaml"))
}
