package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wpsscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultSourceMAC, cfg.SourceMAC)
	assert.Equal(t, 100*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, 65535, cfg.SnapLen)
	assert.True(t, cfg.Promiscuous)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, domain.ModeActive, cfg.Mode())
	assert.Equal(t, domain.MustParseMAC("00:de:ad:be:ef:00"), cfg.Source())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeYAML(t, `
interface: wlan1mon
probe_interval: 250ms
snaplen: 2048
passive: true
http: ":9090"
`)
	t.Setenv("WPSSCAN_SNAPLEN", "4096")
	t.Setenv("WPSSCAN_DEBUG", "true")
	t.Setenv("WPSSCAN_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wlan1mon", cfg.Interface)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, 4096, cfg.SnapLen, "environment overrides the file")
	assert.True(t, cfg.Debug)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout, "bad env values are ignored")
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, domain.ModePassive, cfg.Mode())
}

func TestLoad_ConfigFromEnvironment(t *testing.T) {
	t.Setenv(EnvConfig, writeYAML(t, "replay: capture.pcap\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "capture.pcap", cfg.ReplayPath)
	assert.Equal(t, domain.ModeReplay, cfg.Mode())
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = Load(writeYAML(t, "no_such_key: 1\n"))
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Interface = "wlan0mon"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing interface", func(c *Config) { c.Interface = "" }, "interface"},
		{"bad interface", func(c *Config) { c.Interface = "wlan0; rm -rf /" }, "interface"},
		{"bad mac", func(c *Config) { c.SourceMAC = "00:de:ad" }, "mac"},
		{"zero interval", func(c *Config) { c.ProbeInterval = 0 }, "probe_interval"},
		{"zero timeout", func(c *Config) { c.ReadTimeout = 0 }, "read_timeout"},
		{"tiny snaplen", func(c *Config) { c.SnapLen = 10 }, "snaplen"},
		{"channel", func(c *Config) { c.Channel = 300 }, "channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_ReplayNeedsNoInterface(t *testing.T) {
	cfg := Default()
	cfg.ReplayPath = "capture.pcap"
	assert.NoError(t, cfg.Validate())
}
