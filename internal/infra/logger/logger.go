// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Level  string    // "debug", "info", "warn", "error"
	Output string    // "stderr" (default), "stdout" or a file path
	Format string    // "console" or "json"; "" picks console for terminals and json for files
	Writer io.Writer // Overrides Output when set
}

// Init initializes the global logger. The returned function closes the log
// file, if one was opened.
func Init(cfg Config) (func() error, error) {
	level := parseLevel(cfg.Level)
	closer := func() error { return nil }

	writer := cfg.Writer
	format := strings.ToLower(cfg.Format)
	if writer == nil {
		switch strings.ToLower(cfg.Output) {
		case "stderr", "":
			writer = os.Stderr
		case "stdout":
			writer = os.Stdout
		default:
			if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
				return closer, errors.Wrap(err, "failed to create log directory")
			}
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return closer, errors.Wrap(err, "failed to open log file")
			}
			writer = f
			closer = f.Close
			if format == "" {
				format = "json"
			}
		}
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.CallerMarshalFunc = shortCaller

	var ctx zerolog.Context
	if format == "json" {
		ctx = zerolog.New(writer).With().Timestamp()
	} else {
		ctx = zerolog.New(zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.TimeOnly,
			PartsOrder: []string{"time", "level", "message", "caller"},
			FormatCaller: func(i interface{}) string {
				if s, ok := i.(string); ok && s != "" {
					return "(" + s + ")"
				}
				return ""
			},
		}).With().Timestamp()
	}
	// Caller only for DEBUG level
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}

	logger := ctx.Logger()
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return closer, nil
}

// shortCaller keeps the last directory and file name.
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
