// Package logging sets up the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	envLevel   = "GEONAMES_RDF_LOG_LEVEL"
	envNoColor = "GEONAMES_RDF_LOG_NOCOLOR"
)

var configureOnce sync.Once

// Configure installs the global logger on stderr and returns it. level is
// used unless GEONAMES_RDF_LOG_LEVEL is set. Only the first call has an effect.
func Configure(app, level string) zerolog.Logger {
	configureOnce.Do(func() {
		log.Logger = New(os.Stderr, app, level)
	})
	return log.Logger
}

// New builds a console logger writing to w.
func New(w io.Writer, app, level string) zerolog.Logger {
	if env := os.Getenv(envLevel); env != "" {
		level = env
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv(envNoColor) != "",
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", app).Logger()
}
