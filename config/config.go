package config

import (
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"messagic/wire"
)

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Transport TransportConfig `mapstructure:"transport"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Tuning    TuningConfig    `mapstructure:"tuning"`
}

type LimitsConfig struct {
	TextMaximumSize   int `mapstructure:"text_maximum_size"`
	BinaryMaximumSize int `mapstructure:"binary_maximum_size"`
}

type TransportConfig struct {
	Kind          string `mapstructure:"kind"`
	Address       string `mapstructure:"address"`
	Command       string `mapstructure:"command"`
	DialTimeoutMS int    `mapstructure:"dial_timeout_ms"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TuningConfig struct {
	RecvRateLimit float64 `mapstructure:"recv_rate_limit"`
	RecvRateBurst int     `mapstructure:"recv_rate_burst"`
}

func (l LimitsConfig) Wire() wire.Limits {
	return wire.Limits{
		TextMaximumSize:   l.TextMaximumSize,
		BinaryMaximumSize: l.BinaryMaximumSize,
	}
}

func ReadConfig(r io.Reader) (*Config, error) {
	decoder := toml.NewDecoder(r)
	decoder.SetTagName("mapstructure")
	config := &Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, errors.Wrap(err, "error decoding config file")
	}
	if config.Limits.TextMaximumSize == 0 {
		config.Limits.TextMaximumSize = wire.DefaultMaximumSize
	}
	if config.Limits.BinaryMaximumSize == 0 {
		config.Limits.BinaryMaximumSize = wire.DefaultMaximumSize
	}
	if err := config.Limits.Wire().Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid [limits] section")
	}
	return config, nil
}

func ConvertDuration(base int, unit time.Duration) time.Duration {
	return time.Duration(base) * unit
}
