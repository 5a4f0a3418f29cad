package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// OutputConfig describes where the combined output of each transcode process
// is written. When Dir is empty, output is only retained in memory.
// Rotation parameters follow lumberjack semantics.
type OutputConfig struct {
	Dir        string `mapstructure:"log-dir"`
	MaxSizeMB  int    `mapstructure:"log-max-size"`
	MaxBackups int    `mapstructure:"log-max-backups"`
	MaxAgeDays int    `mapstructure:"log-max-age"`
	Compress   bool   `mapstructure:"log-compress"`
}

// Path returns the log file path for the stream with the given id, or an
// empty string if no log directory is configured.
func (c OutputConfig) Path(id string) string {
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s.log", id))
}

// Writer returns a rotating log file for the stream with the given id, or
// nil if no log directory is configured.
func (c OutputConfig) Writer(id string) (io.WriteCloser, error) {
	path := c.Path(id)
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
