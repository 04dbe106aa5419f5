package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/harun/ctx/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process logger. It owns the log file and the redactor
// every line passes through.
type Logger struct {
	zl       zerolog.Logger
	closer   io.Closer
	redactor *Redactor
}

// Config holds logger configuration
type Config struct {
	Level     string    // debug, info, warn, error
	File      string    // log file path
	Console   bool      // enable console output
	Pretty    bool      // pretty format for console
	Output    io.Writer // console destination, stderr when nil
	Redaction bool      // enable sensitive data redaction
	MaxSize   int       // max size in MB before rotation, 100 when 0
	MaxAge    int       // max age in days
	Compress  bool      // compress rotated logs
	Secrets   []string  // literal values to redact
}

// FromConfig maps the logging section of the config file and collects the
// configured credentials for redaction. A non-empty level overrides the
// file. With a nil console only the file is written.
func FromConfig(cfg *config.Config, level string, console io.Writer) Config {
	section := cfg.Logging
	if level == "" {
		level = section.Level
	}
	return Config{
		Level:     level,
		File:      section.File,
		Console:   console != nil,
		Pretty:    true,
		Output:    console,
		Redaction: section.Redaction,
		MaxSize:   section.MaxSize,
		MaxAge:    section.MaxAge,
		Compress:  section.Compress,
		Secrets: []string{
			cfg.Anthropic.APIKey,
			cfg.Trello.APIKey,
			cfg.Trello.Token,
			cfg.Telegram.BotToken,
			cfg.Webhook.Secret,
		},
	}
}

// New creates a logger and installs it as the zerolog global
func New(cfg Config) (*Logger, error) {
	sink, closer, err := openSinks(cfg)
	if err != nil {
		return nil, err
	}

	var redactor *Redactor
	if cfg.Redaction {
		redactor = NewRedactor()
		for _, secret := range cfg.Secrets {
			redactor.AddSecret(secret)
		}
		sink = redactor.Wrap(sink)
	}

	zl := zerolog.New(sink).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	log.Logger = zl

	return &Logger{
		zl:       zl,
		closer:   closer,
		redactor: redactor,
	}, nil
}

// parseLevel falls back to info for empty or unknown levels
func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// openSinks builds the console and file writers. The closer is nil when
// no file is open.
func openSinks(cfg Config) (io.Writer, io.Closer, error) {
	var sinks []io.Writer

	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		if cfg.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}
		sinks = append(sinks, out)
	}

	var closer io.Closer
	if cfg.File != "" {
		fw, err := newFileWriter(cfg.File, cfg.MaxSize, cfg.MaxAge, cfg.Compress)
		if err != nil {
			return nil, nil, err
		}
		closer = fw
		sinks = append(sinks, fw)
	}

	switch len(sinks) {
	case 0:
		return os.Stderr, nil, nil
	case 1:
		return sinks[0], closer, nil
	default:
		return zerolog.MultiLevelWriter(sinks...), closer, nil
	}
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Debug logs a debug message
func (l *Logger) Debug() *zerolog.Event {
	return l.zl.Debug()
}

// Info logs an info message
func (l *Logger) Info() *zerolog.Event {
	return l.zl.Info()
}

// Warn logs a warning message
func (l *Logger) Warn() *zerolog.Event {
	return l.zl.Warn()
}

// Error logs an error message
func (l *Logger) Error() *zerolog.Event {
	return l.zl.Error()
}

// GetZerolog returns the underlying zerolog.Logger
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.zl
}
