// SPDX-License-Identifier: EPL-2.0

// Package config loads audmix settings from a YAML file, AUDMIX_
// environment variables and bound command-line flags.
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/spatial"
)

// EnvPrefix is prepended to every environment override, so mixer.sample_rate
// is read from AUDMIX_MIXER_SAMPLE_RATE.
const EnvPrefix = "AUDMIX"

// Config holds all configuration for the application.
type Config struct {
	Mixer   MixerConfig   `mapstructure:"mixer"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MixerConfig mirrors mixer.Config with names usable in a file.
type MixerConfig struct {
	SampleRate      int     `mapstructure:"sample_rate"`
	SpeakerMode     string  `mapstructure:"speaker_mode"`
	MaxChannels     int     `mapstructure:"max_channels"`
	ChannelPool     int     `mapstructure:"channel_pool"`
	DSPBufferLength int     `mapstructure:"dsp_buffer_length"`
	StreamBufferMS  int     `mapstructure:"stream_buffer_ms"`
	Rolloff         string  `mapstructure:"rolloff"`
	VolumeThreshold float64 `mapstructure:"volume_threshold"`
	DopplerScale    float64 `mapstructure:"doppler_scale"`
	DistanceFactor  float64 `mapstructure:"distance_factor"`
	RolloffScale    float64 `mapstructure:"rolloff_scale"`
	QueueSize       int     `mapstructure:"queue_size"`
	EventBuffer     int     `mapstructure:"event_buffer"`
	Vol0Virtual     bool    `mapstructure:"vol0_virtual"`
	RightHanded     bool    `mapstructure:"right_handed"`
}

// OutputConfig holds sink settings.
type OutputConfig struct {
	BitDepth int           `mapstructure:"bit_depth"`
	Latency  time.Duration `mapstructure:"latency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := mixer.DefaultConfig()

	v.SetDefault("mixer.sample_rate", d.SampleRate)
	v.SetDefault("mixer.speaker_mode", d.SpeakerMode.String())
	v.SetDefault("mixer.max_channels", d.MaxChannels)
	v.SetDefault("mixer.channel_pool", d.ChannelPool)
	v.SetDefault("mixer.dsp_buffer_length", d.DSPBufferLength)
	v.SetDefault("mixer.stream_buffer_ms", d.StreamBufferSize)
	v.SetDefault("mixer.rolloff", d.Rolloff.String())
	v.SetDefault("mixer.volume_threshold", d.VolumeThreshold)
	v.SetDefault("mixer.doppler_scale", d.DopplerScale)
	v.SetDefault("mixer.distance_factor", d.DistanceFactor)
	v.SetDefault("mixer.rolloff_scale", d.RolloffScale)
	v.SetDefault("mixer.queue_size", d.QueueSize)
	v.SetDefault("mixer.event_buffer", d.EventBuffer)
	v.SetDefault("mixer.vol0_virtual", false)
	v.SetDefault("mixer.right_handed", false)
	v.SetDefault("output.bit_depth", 16)
	v.SetDefault("output.latency", "100ms")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration into v and decodes it. file, when set,
// replaces the search for audmix.yaml in ., $HOME/.audmix and
// /etc/audmix.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("audmix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.audmix")
		v.AddConfigPath("/etc/audmix")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Debug("Using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	m := c.Mixer

	if m.SampleRate < 8000 || m.SampleRate > 192000 {
		return &ConfigError{Field: "mixer.sample_rate", Message: "must be between 8000 and 192000"}
	}
	if _, ok := spatial.ParseSpeakerMode(m.SpeakerMode); !ok {
		return &ConfigError{Field: "mixer.speaker_mode", Message: "unknown speaker mode " + quote(m.SpeakerMode)}
	}
	if m.MaxChannels < 0 || m.MaxChannels > mixer.MaxChannelCeiling {
		return &ConfigError{Field: "mixer.max_channels", Message: "out of range"}
	}
	if m.ChannelPool < 0 || m.ChannelPool > mixer.MaxChannelCeiling {
		return &ConfigError{Field: "mixer.channel_pool", Message: "out of range"}
	}
	if m.DSPBufferLength <= 0 {
		return &ConfigError{Field: "mixer.dsp_buffer_length", Message: "must be positive"}
	}
	r, ok := spatial.ParseRolloff(m.Rolloff)
	if !ok || r == spatial.RolloffCustom {
		return &ConfigError{Field: "mixer.rolloff", Message: "unknown rolloff model " + quote(m.Rolloff)}
	}
	if m.VolumeThreshold < 0 || m.VolumeThreshold > 1 {
		return &ConfigError{Field: "mixer.volume_threshold", Message: "must be between 0 and 1"}
	}
	if m.DopplerScale < 0 {
		return &ConfigError{Field: "mixer.doppler_scale", Message: "must not be negative"}
	}

	switch c.Output.BitDepth {
	case 8, 16, 24, 32:
	default:
		return &ConfigError{Field: "output.bit_depth", Message: "must be 8, 16, 24 or 32"}
	}
	if c.Output.Latency < 0 {
		return &ConfigError{Field: "output.latency", Message: "must not be negative"}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "unknown level " + quote(c.Logging.Level)}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}

	return nil
}

// MixerConfig converts the validated settings. Unknown names fall back to
// the mixer defaults.
func (c *Config) MixerConfig() mixer.Config {
	m := c.Mixer
	cfg := mixer.DefaultConfig()

	cfg.SampleRate = m.SampleRate
	if mode, ok := spatial.ParseSpeakerMode(m.SpeakerMode); ok {
		cfg.SpeakerMode = mode
	}
	cfg.MaxChannels = m.MaxChannels
	cfg.ChannelPool = m.ChannelPool
	cfg.DSPBufferLength = m.DSPBufferLength
	cfg.StreamBufferSize = m.StreamBufferMS
	cfg.StreamBufferUnit = mixer.UnitMilliseconds
	if r, ok := spatial.ParseRolloff(m.Rolloff); ok && r != spatial.RolloffCustom {
		cfg.Rolloff = r
	}
	cfg.VolumeThreshold = m.VolumeThreshold
	cfg.DopplerScale = m.DopplerScale
	cfg.DistanceFactor = m.DistanceFactor
	cfg.RolloffScale = m.RolloffScale
	cfg.QueueSize = m.QueueSize
	cfg.EventBuffer = m.EventBuffer

	return cfg
}

// InitFlags returns the flags for mixer.System.Initialize.
func (c *Config) InitFlags() mixer.InitFlags {
	var f mixer.InitFlags
	if c.Mixer.Vol0Virtual {
		f |= mixer.InitVol0BecomesVirtual
	}
	if c.Mixer.RightHanded {
		f |= mixer.InitRightHanded3D
	}
	return f
}

func quote(s string) string { return `"` + s + `"` }

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
