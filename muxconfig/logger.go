package muxconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger writing to w, os.Stderr when nil. When
// pretty is true the output is formatted for humans. Unknown levels fall
// back to info.
func NewLogger(level string, pretty bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Logger builds the logger described by c.
func (c LogConfig) Logger(w io.Writer) zerolog.Logger {
	return NewLogger(c.Level, c.Pretty, w)
}
