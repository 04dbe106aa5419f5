package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/logger"
	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/internal/telegram"
	"github.com/harun/ctx/internal/tracing"
	"github.com/harun/ctx/pkg/commandqueue"
	"github.com/harun/ctx/pkg/cron"
	"github.com/harun/ctx/pkg/webhook"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Daemon represents the ctx daemon service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	core  *Core
	queue *commandqueue.CommandQueue

	// Services
	webhookServer *webhook.Server
	metricsServer *http.Server
	cronService   *cron.Service

	// Telegram
	telegramBot     *telegram.Bot
	telegramHandler *telegram.Handler
	telegramCmd     *telegram.Commands

	// Internal components
	eventLoop *EventLoop
	router    *Router
	lifecycle *LifecycleManager

	// State
	mu        sync.RWMutex
	running   bool
	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        conc.WaitGroup
	stopped   chan struct{}
}

var newTelegramBot = func(cfg *config.TelegramConfig, log *logger.Logger) (*telegram.Bot, error) {
	return telegram.New(cfg, log)
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:  cfg,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	if err := d.initializeCoreModules(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	if err := d.initializeServices(); err != nil {
		cancel()
		d.queue.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return d, nil
}

// initializeCoreModules builds the message-handling stack
func (d *Daemon) initializeCoreModules() error {
	base := d.logger.GetZerolog()

	if d.config.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		d.config.DataDir = filepath.Join(home, ".ctx")
	}

	if d.config.Logging.AuditFile != "" {
		if err := observability.OpenAuditFile(d.config.Logging.AuditFile); err != nil {
			base.Warn().Err(err).Msg("Failed to open audit log, continuing with the default audit sink")
		}
	}

	core, err := BuildCore(d.config, base)
	if err != nil {
		return err
	}
	d.core = core

	d.queue = commandqueue.New()
	warnAfter := time.Duration(d.config.Telegram.QueueWarnMs) * time.Millisecond
	d.router = NewRouter(d.queue, core.FrontDoor, warnAfter, base)
	d.eventLoop = NewEventLoop(d.queue, core.Approvals, 0, base)
	d.lifecycle = NewLifecycleManager(d.config.DataDir, base)

	return nil
}

// initializeServices builds the transports and background jobs
func (d *Daemon) initializeServices() error {
	base := d.logger.GetZerolog()

	if d.config.Telegram.BotToken != "" {
		bot, err := newTelegramBot(&d.config.Telegram, d.logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		d.telegramBot = bot
		for _, warning := range d.config.Warnings() {
			base.Warn().Msg(warning)
		}
		d.telegramHandler = telegram.NewHandler(bot)
		d.telegramCmd = telegram.NewCommands(bot)
		d.telegramCmd.Register("cancel", "Cancel a pending confirmation", d.handleCancelCommand)
		d.telegramHandler.SetResponder(d.respondInLane)
		d.telegramCmd.SetResponder(d.respondInLane)
		d.telegramHandler.SetOnMessage(d.handleTelegramMessage)
		bot.SetMessageHandler(d.telegramHandler)
		bot.SetCommandHandler(d.telegramCmd)
	} else {
		base.Warn().Msg("No Telegram bot token configured, chat transport disabled")
	}

	if d.config.Webhook.Enabled {
		server, err := webhook.NewServer(webhook.Options{
			Host:               d.config.Webhook.Host,
			Port:               d.config.Webhook.Port,
			Path:               d.config.Webhook.Path,
			Secret:             d.config.Webhook.Secret,
			RateLimitPerMinute: d.config.Webhook.RateLimit,
			Timeout:            time.Duration(d.config.Webhook.Timeout) * time.Second,
		}, d.handleWebhookUpdate, base)
		if err != nil {
			return fmt.Errorf("failed to create webhook server: %w", err)
		}
		d.webhookServer = server
	}

	if d.config.Metrics.Enabled && d.config.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		d.metricsServer = &http.Server{
			Addr:              d.config.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	d.cronService = cron.NewService(cron.ServiceOptions{JobTimeout: time.Minute})
	if d.config.Vault.DailySchedule != "" {
		if _, err := d.cronService.AddJob(cron.AddParams{
			Name:     "daily-note",
			Schedule: d.config.Vault.DailySchedule,
			Run:      d.ensureDailyNote,
		}); err != nil {
			d.cronService.Stop()
			return fmt.Errorf("failed to schedule daily note: %w", err)
		}
	}

	return nil
}

// ensureDailyNote creates today's note if it is missing
func (d *Daemon) ensureDailyNote(ctx context.Context) error {
	path, err := d.core.Vault.EnsureDaily(ctx)
	if err != nil {
		return err
	}
	d.logger.Info().Str("path", path).Msg("Daily note ready")
	return nil
}

// handleTelegramMessage queues a chat message and replies when it is handled
func (d *Daemon) handleTelegramMessage(mc telegram.MessageContext) error {
	if err := d.telegramHandler.SendTyping(mc.ChatID); err != nil {
		d.logger.Debug().Err(err).Int64("chat_id", mc.ChatID).Msg("Failed to send typing action")
	}

	return d.router.Dispatch(d.ctx, Message{
		ConversationID: mc.ChatID,
		Source:         "telegram",
		Content:        mc.Text,
	}, func(reply string) {
		if err := d.telegramHandler.SendResponse(mc, reply); err != nil {
			d.logger.Error().Err(err).Int64("chat_id", mc.ChatID).Msg("Failed to send reply")
		}
	})
}

// respondInLane sends a canned reply after the message has passed through
// the chat's lane, so it clears a pending confirmation like any other message
func (d *Daemon) respondInLane(chatID int64, text string, replyTo int) error {
	return d.router.Dispatch(d.ctx, Message{
		ConversationID: chatID,
		Source:         "telegram",
		Reply:          text,
	}, func(reply string) {
		if err := d.telegramBot.SendMessageWithReply(chatID, reply, replyTo); err != nil {
			d.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
		}
	})
}

// handleCancelCommand clears a pending confirmation on the chat's lane, so it
// is ordered with the chat's messages
func (d *Daemon) handleCancelCommand(cc telegram.CommandContext) error {
	return d.router.Dispatch(d.ctx, Message{
		ConversationID: cc.ChatID,
		Source:         "telegram",
		Cancel:         true,
	}, func(reply string) {
		if err := d.telegramCmd.SendResponse(cc, reply); err != nil {
			d.logger.Error().Err(err).Int64("chat_id", cc.ChatID).Msg("Failed to send reply")
		}
	})
}

// handleWebhookUpdate feeds a pushed update through the same path as polling
func (d *Daemon) handleWebhookUpdate(update tgbotapi.Update) {
	if d.telegramBot == nil {
		d.logger.Warn().Int("update_id", update.UpdateID).Msg("Webhook update received without a bot token")
		return
	}
	if err := d.telegramBot.HandleUpdate(update); err != nil {
		d.logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to handle webhook update")
	}
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	select {
	case <-d.stopped:
		d.mu.Unlock()
		return fmt.Errorf("daemon has been stopped")
	default:
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	log := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	log.Info().Msg("Starting ctx daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.metricsServer != nil {
		srv := d.metricsServer
		d.wg.Go(func() {
			log.Info().Str("addr", srv.Addr).Msg("Metrics server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		})
	}

	if d.webhookServer != nil {
		srv := d.webhookServer
		d.wg.Go(func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("Webhook server failed")
			}
		})
	}

	if d.telegramBot != nil {
		if err := d.telegramCmd.Publish(); err != nil {
			log.Warn().Err(err).Msg("Failed to publish bot commands")
		}

		// polling and a registered webhook are mutually exclusive on Telegram's side
		if d.webhookServer == nil {
			if err := d.telegramBot.DeleteWebhook(); err != nil {
				log.Warn().Err(err).Msg("Failed to delete webhook before polling")
			}
			if err := d.telegramBot.Start(); err != nil {
				d.Stop()
				return fmt.Errorf("failed to start telegram bot: %w", err)
			}
			log.Info().Str("username", d.telegramBot.Username()).Msg("Telegram bot polling")
		} else {
			log.Info().Msg("Telegram bot receiving updates by webhook")
		}
	}

	d.wg.Go(func() {
		d.eventLoop.Run(d.ctx)
	})

	log.Info().Msg("Daemon started successfully")
	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	log := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	log.Info().Msg("Stopping ctx daemon")

	// stop intake first
	if d.telegramBot != nil && d.telegramBot.IsRunning() {
		if err := d.telegramBot.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop telegram bot")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.webhookServer != nil {
		if err := d.webhookServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop webhook server")
		}
	}

	if err := d.cronService.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop cron service")
	}

	d.eventLoop.HandleShutdown(5 * time.Second)

	if err := d.queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close command queue")
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if d.telegramBot != nil {
		d.telegramBot.Close()
	}

	if err := d.lifecycle.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if err := observability.Audit().Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close audit trail")
	}

	log.Info().Msg("Daemon stopped successfully")
	close(d.stopped)

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:          d.running,
		PendingApprovals: d.core.Approvals.Len(),
		Telegram:         d.telegramBot != nil,
		Webhook:          d.webhookServer != nil,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
		if err := d.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop daemon")
		}
	case <-d.stopped:
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() zerolog.Logger {
	return d.logger.GetZerolog()
}

// GetRouter returns the message router
func (d *Daemon) GetRouter() *Router {
	return d.router
}

// GetCore returns the message-handling stack
func (d *Daemon) GetCore() *Core {
	return d.core
}

// GetWebhookServer returns the webhook server, nil unless webhook mode is on
func (d *Daemon) GetWebhookServer() *webhook.Server {
	return d.webhookServer
}

// Status represents daemon status
type Status struct {
	Running          bool          `json:"running"`
	Uptime           time.Duration `json:"uptime"`
	StartTime        time.Time     `json:"start_time"`
	PendingApprovals int           `json:"pending_approvals"`
	Telegram         bool          `json:"telegram"`
	Webhook          bool          `json:"webhook"`
}
