// Package logging monta os loggers do processo: o de aplicação (zerolog) e o
// destino do access log (stdout ou arquivo com rotação).
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"devtools-api/internal/config"
)

// New cria o logger de aplicação a partir de LOG_LEVEL e LOG_FORMAT.
func New(out io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "devtools-api").Logger(), nil
}

// AccessSink devolve o destino do access log. Com arquivo configurado usa
// lumberjack para rotação; o Closer deve ser fechado no shutdown.
func AccessSink(cfg config.AccessLogConfig) io.WriteCloser {
	if cfg.File == "" {
		return nopCloser{os.Stdout}
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
