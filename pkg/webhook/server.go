// Package webhook receives Telegram updates pushed over HTTPS instead of
// long polling.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/ctx/internal/observability"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

const (
	// DefaultPath is where Telegram delivers updates
	DefaultPath = "/webhook"
	// SecretHeader carries the secret_token given to setWebhook
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	maxBodyBytes = 1 << 20
)

// UpdateFunc receives one decoded update. It runs before the response is
// written, so updates are handed over in delivery order. It must not block
// on message processing.
type UpdateFunc func(update tgbotapi.Update)

// Options configures the webhook server
type Options struct {
	Host               string        // default "0.0.0.0"
	Port               int           // default 3000
	Path               string        // default DefaultPath
	Secret             string        // empty accepts any caller
	RateLimitPerMinute int           // per client IP, default 60, negative disables
	Timeout            time.Duration // bound on UpdateFunc, default 30s
}

// Server serves /health and the update endpoint
type Server struct {
	options  Options
	onUpdate UpdateFunc
	limiter  *RateLimiter
	mux      *http.ServeMux
	logger   zerolog.Logger
	started  time.Time
	received atomic.Int64

	mu       sync.RWMutex
	srv      *http.Server
	draining bool
	inFlight sync.WaitGroup
}

// NewServer validates options and builds the routes
func NewServer(options Options, onUpdate UpdateFunc, logger zerolog.Logger) (*Server, error) {
	if onUpdate == nil {
		return nil, fmt.Errorf("update handler is required")
	}
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Port < 0 || options.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", options.Port)
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.Path == "" {
		options.Path = DefaultPath
	}
	if !strings.HasPrefix(options.Path, "/") || options.Path == "/health" {
		return nil, fmt.Errorf("invalid webhook path: %q", options.Path)
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 60
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}

	s := &Server{
		options:  options,
		onUpdate: onUpdate,
		limiter:  NewRateLimiter(options.RateLimitPerMinute),
		logger:   logger.With().Str("component", "webhook").Logger(),
		started:  time.Now(),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST "+options.Path, s.handleUpdate)

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.options.Host, strconv.Itoa(s.options.Port))
}

// Received returns the number of updates handed to the update handler
func (s *Server) Received() int64 {
	return s.received.Load()
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info().
		Str("addr", srv.Addr).
		Str("path", s.options.Path).
		Bool("secret", s.options.Secret != "").
		Msg("Starting webhook server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start webhook server: %w", err)
	}
	return nil
}

// Stop rejects new updates, waits for in-flight ones until ctx is done and
// shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	srv := s.srv
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown timeout reached with updates in flight")
	}

	s.limiter.Stop()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown webhook server: %w", err)
	}
	s.logger.Info().Msg("Webhook server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.started).Seconds(),
		"received": s.Received(),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	code := s.serveUpdate(w, r)
	observability.RecordWebhookRequest(code, time.Since(start))
}

// serveUpdate writes the response and returns its status code
func (s *Server) serveUpdate(w http.ResponseWriter, r *http.Request) int {
	s.mu.RLock()
	if s.draining {
		s.mu.RUnlock()
		return writeError(w, http.StatusServiceUnavailable, "shutting down")
	}
	s.inFlight.Add(1)
	s.mu.RUnlock()
	defer s.inFlight.Done()

	ip := clientIP(r)
	if ok, retryAfter := s.limiter.Allow(ip); !ok {
		s.logger.Warn().Str("ip", ip).Dur("retry_after", retryAfter).Msg("Rate limit exceeded")
		w.Header().Set("Retry-After", strconv.Itoa(int((retryAfter+time.Second-1)/time.Second)))
		return writeError(w, http.StatusTooManyRequests, "too many requests")
	}

	if s.options.Secret != "" {
		token := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.options.Secret)) != 1 {
			s.logger.Warn().Str("ip", ip).Msg("Rejected update with a bad secret token")
			return writeError(w, http.StatusUnauthorized, "unauthorized")
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return writeError(w, http.StatusRequestEntityTooLarge, "body too large")
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		s.logger.Debug().Err(err).Str("ip", ip).Msg("Malformed update")
		return writeError(w, http.StatusBadRequest, "invalid update")
	}

	if err := s.deliver(r.Context(), update); err != nil {
		s.logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("Update handler failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return writeError(w, http.StatusGatewayTimeout, "timeout")
		}
		return writeError(w, http.StatusInternalServerError, "internal error")
	}

	s.received.Add(1)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return http.StatusOK
}

// deliver runs the update handler under the timeout. A panic is returned
// as an error.
func (s *Server) deliver(parent context.Context, update tgbotapi.Update) error {
	ctx, cancel := context.WithTimeout(parent, s.options.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var pc panics.Catcher
		pc.Try(func() { s.onUpdate(update) })
		if r := pc.Recovered(); r != nil {
			done <- fmt.Errorf("update handler panicked: %v", r.Value)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("update %d: %w", update.UpdateID, ctx.Err())
	}
}

// clientIP prefers the first proxy hop
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, code int, msg string) int {
	writeJSON(w, code, map[string]string{"error": msg})
	return code
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
