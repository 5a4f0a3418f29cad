package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

var LogLevel slog.LevelVar

func init() {
	lg := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		AddSource:  true,
		Level:      &LogLevel,
		TimeFormat: "2006 Jan 02 15:04:05",
	}))
	slog.SetDefault(lg)
}

// SetLevel parses a level name (debug, info, warn, error) and applies it to
// the default logger.
func SetLevel(name string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return err
	}
	LogLevel.Set(level)
	return nil
}
