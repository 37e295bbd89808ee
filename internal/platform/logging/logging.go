package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"
)

// Output formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatECS     = "ecs"
)

// New builds the service logger. ECS output follows the Elastic Common Schema
// field names so the lines can be shipped to Elasticsearch unchanged.
func New(w io.Writer, format, level, service string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case FormatConsole, "":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	case FormatJSON:
		logger = zerolog.New(w).With().Timestamp().Logger()
	case FormatECS:
		logger = ecszerolog.New(w)
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	if service != "" {
		logger = logger.With().Str("service", service).Logger()
	}
	return logger.Level(lvl), nil
}

func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatJSON, FormatECS:
		return true
	}
	return false
}
