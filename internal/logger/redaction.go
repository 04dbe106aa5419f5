package logger

import (
	"io"
	"regexp"
)

// Redactor redacts sensitive information from logs
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Anthropic API keys
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// Telegram bot tokens, also inside api.telegram.org/bot<token>/ URLs
			regexp.MustCompile(`\d{8,10}:[a-zA-Z0-9_-]{30,}`),

			// Trello credentials travel as query parameters
			regexp.MustCompile(`([?&]key=)[0-9a-fA-F]{32}`),
			regexp.MustCompile(`([?&]token=)[0-9a-zA-Z]{32,}`),

			// Webhook secret header
			regexp.MustCompile(`(X-Telegram-Bot-Api-Secret-Token["\s:=]+)[^\s"]+`),

			// Generic secrets
			regexp.MustCompile(`(secret"?\s*[:=]\s*"?)[^\s"]+`),
			regexp.MustCompile(`(api_key"?\s*[:=]\s*"?)[^\s"]+`),
		},
	}
}

// minSecretLen keeps short values from masking ordinary words
const minSecretLen = 6

// AddSecret redacts every occurrence of a literal value, such as a
// configured token that no pattern recognizes
func (r *Redactor) AddSecret(value string) {
	if len(value) < minSecretLen {
		return
	}
	r.patterns = append(r.patterns, regexp.MustCompile(regexp.QuoteMeta(value)))
}

// Redact redacts sensitive information from a string. A leading capture
// group is kept so keys stay readable.
func (r *Redactor) Redact(s string) string {
	result := s
	for _, pattern := range r.patterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllString(result, "${1}[REDACTED]")
		} else {
			result = pattern.ReplaceAllString(result, "[REDACTED]")
		}
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

// redactingWriter is an io.Writer that redacts sensitive information
type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers never see a short write from
// the length change.
func (w *redactingWriter) Write(p []byte) (n int, err error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	return len(p), nil
}
