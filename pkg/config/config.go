// Package config loads the relay server configuration from flags, an
// optional config file, and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kralicky/streamrelay/pkg/logger"
	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/supervisor"
	"github.com/kralicky/streamrelay/pkg/transcode"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "STREAMRELAY"

// LegacyTokenEnv is also accepted for the bot token, so an existing .env
// file can be reused unchanged.
const LegacyTokenEnv = "BOT_TOKEN"

var ErrMissingToken = errors.New("token is required (set --token, STREAMRELAY_TOKEN or BOT_TOKEN)")

type Config struct {
	Token          string `mapstructure:"token"`
	ListenAddress  string `mapstructure:"listen-address"`
	MetricsAddress string `mapstructure:"metrics-address"`
	CertFile       string `mapstructure:"cert"`
	KeyFile        string `mapstructure:"key"`
	CaCertFile     string `mapstructure:"cacert"`

	FFmpeg       string        `mapstructure:"ffmpeg"`
	GracePeriod  time.Duration `mapstructure:"grace-period"`
	KillTimeout  time.Duration `mapstructure:"kill-timeout"`
	ReapInterval time.Duration `mapstructure:"reap-interval"`

	logger.OutputConfig `mapstructure:",squash"`

	Profile transcode.Profile `mapstructure:"profile"`
}

// AddFlags registers the server flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, toml, json or .env)")
	fs.String("token", "", "bearer token clients must present")
	fs.StringP("listen-address", "a", "127.0.0.1:9098", "address to listen on")
	fs.String("metrics-address", "", "address to serve prometheus metrics on (disabled if empty)")
	fs.String("cert", "", "path to the server certificate")
	fs.String("key", "", "path to the server key")
	fs.String("cacert", "", "path to a CA certificate used to verify client certificates")
	fs.String("ffmpeg", "ffmpeg", "path to the ffmpeg executable")
	fs.Duration("grace-period", supervisor.DefaultGracePeriod, "time a stopped stream is given to exit before it is killed")
	fs.Duration("kill-timeout", process.DefaultKillTimeout, "time to wait for a killed stream to exit")
	fs.Duration("reap-interval", supervisor.DefaultReapInterval, "how often to check for streams that exited on their own (negative disables)")
	fs.String("log-dir", "", "directory for per-stream ffmpeg logs (disabled if empty)")
	fs.Int("log-max-size", logger.DefaultMaxSizeMB, "max size in megabytes of a stream log before it is rotated")
	fs.Int("log-max-backups", logger.DefaultMaxBackups, "max number of rotated stream logs to keep")
	fs.Int("log-max-age", logger.DefaultMaxAgeDays, "max age in days of rotated stream logs")
	fs.Bool("log-compress", false, "compress rotated stream logs")
}

func setProfileDefaults(v *viper.Viper, p transcode.Profile) {
	for key, value := range map[string]any{
		"video-codec":         p.VideoCodec,
		"preset":              p.Preset,
		"video-bitrate":       p.VideoBitrate,
		"max-rate":            p.MaxRate,
		"buffer-size":         p.BufferSize,
		"pixel-format":        p.PixelFormat,
		"gop":                 p.GOP,
		"audio-codec":         p.AudioCodec,
		"audio-bitrate":       p.AudioBitrate,
		"audio-channels":      p.AudioChannels,
		"audio-sample-rate":   p.AudioSampleRate,
		"format":              p.Format,
		"reconnect-delay-max": p.ReconnectDelayMax,
	} {
		v.SetDefault("profile."+key, value)
	}
}

// New returns a viper instance reading from fs, the environment, and the
// file named by the "config" flag if it is set. If fs is nil, a flag set
// holding only the defaults registered by AddFlags is used.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	if fs == nil {
		fs = pflag.NewFlagSet("defaults", pflag.ContinueOnError)
		AddFlags(fs)
	}
	v := viper.New()
	setProfileDefaults(v, transcode.DefaultProfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("token", EnvPrefix+"_TOKEN", LegacyTokenEnv); err != nil {
		return nil, err
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.Token == "" {
		// keys read from a .env file are not subject to the env bindings
		cfg.Token = v.GetString(strings.ToLower(LegacyTokenEnv))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	var errs []error
	if c.ListenAddress == "" {
		errs = append(errs, errors.New("listen-address cannot be empty"))
	}
	if c.FFmpeg == "" {
		errs = append(errs, errors.New("ffmpeg cannot be empty"))
	}
	if c.GracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("grace-period must be positive, got %s", c.GracePeriod))
	}
	if c.KillTimeout <= 0 {
		errs = append(errs, fmt.Errorf("kill-timeout must be positive, got %s", c.KillTimeout))
	}
	if c.ReapInterval == 0 {
		errs = append(errs, errors.New("reap-interval cannot be zero"))
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		errs = append(errs, errors.New("cert and key must be set together"))
	}
	if c.CaCertFile != "" && c.CertFile == "" {
		errs = append(errs, errors.New("cacert requires cert and key"))
	}
	if err := c.Profile.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
