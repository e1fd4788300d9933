// Package config loads scanner settings from defaults, an optional YAML
// file and WPSSCAN_* environment variables. Command line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Defaults.
const (
	DefaultSourceMAC     = "00:de:ad:be:ef:00"
	DefaultProbeInterval = 100 * time.Millisecond
	DefaultSnapLen       = 65535
	DefaultReadTimeout   = 500 * time.Millisecond

	// EnvConfig names the YAML file when --config is not given.
	EnvConfig = "WPSSCAN_CONFIG"
)

// Config holds all application configuration.
type Config struct {
	Interface     string        `yaml:"interface"`
	SourceMAC     string        `yaml:"source_mac"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	SnapLen       int           `yaml:"snaplen"`
	Promiscuous   bool          `yaml:"promiscuous"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`

	// Channel tunes the interface before scanning; 0 leaves it alone.
	Channel int `yaml:"channel"`
	// Monitor switches the interface to monitor mode for the session and
	// back to managed mode afterwards.
	Monitor bool `yaml:"monitor"`

	Passive    bool   `yaml:"passive"`
	ReplayPath string `yaml:"replay"`

	DBPath       string `yaml:"db"`
	EventLogPath string `yaml:"event_log"`
	PcapPath     string `yaml:"pcap"`
	ReportPath   string `yaml:"report"`
	OUIPath      string `yaml:"oui_file"`
	OUIDBPath    string `yaml:"oui_db"`
	HTTPAddr     string `yaml:"http"`

	Debug bool `yaml:"debug"`
	Trace bool `yaml:"trace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SourceMAC:     DefaultSourceMAC,
		ProbeInterval: DefaultProbeInterval,
		SnapLen:       DefaultSnapLen,
		Promiscuous:   true,
		ReadTimeout:   DefaultReadTimeout,
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $WPSSCAN_CONFIG when path is empty) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv(EnvConfig, "")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile overlays the YAML document at path. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &domain.ConfigurationError{Op: "config file", Err: err}
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return &domain.ConfigurationError{Op: "config file " + path, Err: err}
	}
	return nil
}

// ApplyEnv overlays WPSSCAN_* environment variables. Unparseable values are
// ignored.
func (c *Config) ApplyEnv() {
	c.Interface = getEnv("WPSSCAN_INTERFACE", c.Interface)
	c.SourceMAC = getEnv("WPSSCAN_SOURCE_MAC", c.SourceMAC)
	c.ProbeInterval = getEnvDuration("WPSSCAN_PROBE_INTERVAL", c.ProbeInterval)
	c.SnapLen = getEnvInt("WPSSCAN_SNAPLEN", c.SnapLen)
	c.Promiscuous = getEnvBool("WPSSCAN_PROMISCUOUS", c.Promiscuous)
	c.ReadTimeout = getEnvDuration("WPSSCAN_READ_TIMEOUT", c.ReadTimeout)
	c.Channel = getEnvInt("WPSSCAN_CHANNEL", c.Channel)
	c.Monitor = getEnvBool("WPSSCAN_MONITOR", c.Monitor)
	c.Passive = getEnvBool("WPSSCAN_PASSIVE", c.Passive)
	c.ReplayPath = getEnv("WPSSCAN_REPLAY", c.ReplayPath)
	c.DBPath = getEnv("WPSSCAN_DB", c.DBPath)
	c.EventLogPath = getEnv("WPSSCAN_EVENT_LOG", c.EventLogPath)
	c.PcapPath = getEnv("WPSSCAN_PCAP", c.PcapPath)
	c.ReportPath = getEnv("WPSSCAN_REPORT", c.ReportPath)
	c.OUIPath = getEnv("WPSSCAN_OUI_FILE", c.OUIPath)
	c.OUIDBPath = getEnv("WPSSCAN_OUI_DB", c.OUIDBPath)
	c.HTTPAddr = getEnv("WPSSCAN_HTTP", c.HTTPAddr)
	c.Debug = getEnvBool("WPSSCAN_DEBUG", c.Debug)
	c.Trace = getEnvBool("WPSSCAN_TRACE", c.Trace)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.ReplayPath == "" {
		if err := domain.ValidateInterface(c.Interface); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := domain.ParseMAC(c.SourceMAC); err != nil {
		errs = append(errs, err)
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, invalid("probe_interval", c.ProbeInterval.String()))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, invalid("read_timeout", c.ReadTimeout.String()))
	}
	if c.SnapLen < 64 || c.SnapLen > 262144 {
		errs = append(errs, invalid("snaplen", strconv.Itoa(c.SnapLen)))
	}
	if c.Channel < 0 || c.Channel > 255 {
		errs = append(errs, &domain.ValidationError{Field: "channel", Value: strconv.Itoa(c.Channel), Err: domain.ErrInvalidChannel})
	}

	return errors.Join(errs...)
}

// Source returns the parsed scanner address.
func (c *Config) Source() domain.MAC {
	mac, err := domain.ParseMAC(c.SourceMAC)
	if err != nil {
		return domain.MustParseMAC(DefaultSourceMAC)
	}
	return mac
}

// Mode derives the scan mode: replay wins over passive.
func (c *Config) Mode() domain.ScanMode {
	switch {
	case c.ReplayPath != "":
		return domain.ModeReplay
	case c.Passive:
		return domain.ModePassive
	default:
		return domain.ModeActive
	}
}

var errOutOfRange = errors.New("out of range")

func invalid(field, value string) error {
	return &domain.ValidationError{Field: field, Value: value, Err: errOutOfRange}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// String renders the effective settings for debug logs.
func (c *Config) String() string {
	return fmt.Sprintf("interface=%s source=%s mode=%s interval=%s snaplen=%d", c.Interface, c.SourceMAC, c.Mode(), c.ProbeInterval, c.SnapLen)
}
