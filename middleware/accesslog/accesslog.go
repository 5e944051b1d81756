// Package accesslog registra a entrada e a saída de cada requisição:
//
//	<timestamp> - Request from <client> to <path>
//	<timestamp> - Response to <client> for <path>: <status>
//
// O logger é fire-and-forget. Por padrão as linhas passam por um diode
// (github.com/rs/zerolog/diode): a escrita no sink acontece em outra goroutine e,
// se o sink travar ou falhar, linhas são descartadas em vez de segurar a requisição.
package accesslog

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"

	"devtools-api/middleware/admission/domain"
)

// Format do sink.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger implementa domain.AccessLogger.
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

type config struct {
	format     string
	bufferSize int
	poll       time.Duration
	onDropped  func(int)
}

type Option func(*config)

// WithFormat escolhe FormatText (padrão) ou FormatJSON.
func WithFormat(format string) Option {
	return func(c *config) { c.format = format }
}

// WithBuffer define o tamanho do ring buffer do diode. 0 escreve de forma síncrona.
func WithBuffer(size int) Option {
	return func(c *config) { c.bufferSize = size }
}

// WithDroppedHook recebe quantas linhas foram descartadas por buffer cheio.
func WithDroppedHook(fn func(missed int)) Option {
	return func(c *config) { c.onDropped = fn }
}

// New cria o access logger escrevendo em out.
func New(out io.Writer, opts ...Option) *Logger {
	cfg := config{
		format:     FormatText,
		bufferSize: 1000,
		poll:       10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Logger{}
	if cfg.bufferSize > 0 {
		d := diode.NewWriter(out, cfg.bufferSize, cfg.poll, func(missed int) {
			if cfg.onDropped != nil {
				cfg.onDropped(missed)
			}
		})
		out = d
		l.closer = d
	}

	if cfg.format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:             out,
			NoColor:         true,
			TimeFormat:      time.RFC3339,
			PartsOrder:      []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
			FieldsExclude:   []string{"client", "path", "status"},
			FormatTimestamp: func(i any) string { return formatTimestamp(i) + " -" },
		}
	}

	l.zl = zerolog.New(out).With().Timestamp().Logger()
	return l
}

func formatTimestamp(i any) string {
	s, ok := i.(string)
	if !ok {
		return ""
	}
	t, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}
	return t.Format(time.RFC3339)
}

func (l *Logger) LogRequest(id domain.ClientID, path string) {
	l.zl.Info().
		Str("client", string(id)).
		Str("path", path).
		Msgf("Request from %s to %s", id, path)
}

func (l *Logger) LogResponse(id domain.ClientID, path string, status int) {
	l.zl.Info().
		Str("client", string(id)).
		Str("path", path).
		Int("status", status).
		Msgf("Response to %s for %s: %d", id, path, status)
}

// Close drena o buffer do diode, quando existe.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
