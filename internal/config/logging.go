package config

import (
	"fmt"
	"io"
	log "log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLogLevel converts a case-insensitive level name to a slog level.
// The empty string is info.
func ParseLogLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return log.LevelInfo, nil
	case "debug":
		return log.LevelDebug, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

// NewLogger builds the tinted console logger every binary uses.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return log.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	})), nil
}
