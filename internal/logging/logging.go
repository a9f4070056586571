// Package logging routes zerolog output to a rotating file. The TUI owns the
// terminal, so nothing is ever logged to stderr.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "ardu.log"

// Setup points the global logger at <dir>/ardu.log and returns the writer so
// the caller can close it on exit.
func Setup(dir string, verbose bool) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14,
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return w, nil
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
