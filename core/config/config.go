package config

import (
	"bytes"
	"errors"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"example.com/tinyntp/net/ntp"
)

// DSCP is the Differentiated Services Codepoint value to be used by senders of
// time synchronization packets. Valid values must be in range [0, 63].
const DSCP = 46

const (
	DefaultServer          = "pool.ntp.org"
	DefaultTimeoutMs       = 6000
	DefaultRefreshInterval = time.Hour
	DefaultMetricsAddr     = "127.0.0.1:8080"
)

var (
	errInvalidPort    = errors.New("invalid port")
	errInvalidDSCP    = errors.New("invalid DSCP value")
	errInvalidTimeout = errors.New("invalid timeout")
	errInvalidRefresh = errors.New("invalid refresh interval")
)

type ClientConfig struct {
	Server                string   `toml:"server,omitempty"`
	Port                  int      `toml:"port,omitempty"`
	LocalPort             int      `toml:"local_port,omitempty"`
	TimeoutMs             uint32   `toml:"timeout_ms,omitempty"`
	TimezoneOffsetSeconds int64    `toml:"timezone_offset_seconds,omitempty"`
	RefreshInterval       Duration `toml:"refresh_interval,omitempty"`
	DSCP                  *uint8   `toml:"dscp,omitempty"`
	MetricsAddr           string   `toml:"metrics_address,omitempty"`
	ValidateResponses     bool     `toml:"validate_responses,omitempty"`
}

// Duration is a time.Duration read from a TOML string such as "15m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() ClientConfig {
	dscp := uint8(DSCP)
	return ClientConfig{
		Server:          DefaultServer,
		Port:            ntp.ServerPort,
		TimeoutMs:       DefaultTimeoutMs,
		RefreshInterval: Duration{DefaultRefreshInterval},
		DSCP:            &dscp,
		MetricsAddr:     DefaultMetricsAddr,
	}
}

// Decode reads a TOML configuration. Keys not present keep their default
// values, unknown keys are rejected.
func Decode(raw []byte) (ClientConfig, error) {
	cfg := Default()
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return ClientConfig{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func Load(configFile string) (ClientConfig, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return ClientConfig{}, err
	}
	return Decode(raw)
}

func (c *ClientConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 || c.LocalPort < 0 || c.LocalPort > 65535 {
		return errInvalidPort
	}
	if c.DSCP != nil && *c.DSCP > 63 {
		return errInvalidDSCP
	}
	if c.TimeoutMs == 0 {
		return errInvalidTimeout
	}
	if c.RefreshInterval.Duration <= 0 {
		return errInvalidRefresh
	}
	return nil
}
