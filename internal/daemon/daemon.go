// Package daemon wires the bot's long-running pieces together: the
// socket server, the Telegram update loop, and the signal-driven
// shutdown. Config, registry, and client are built first and passed by
// shared handle into each task; all coupling runs through the registry.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/vibereach/vibe-reachout/internal/audit"
	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/config"
	"github.com/vibereach/vibe-reachout/internal/ipc"
	"github.com/vibereach/vibe-reachout/internal/pending"
	"github.com/vibereach/vibe-reachout/internal/telegram"
)

// pollTimeout is the Telegram long-poll duration.
const pollTimeout = 10 * time.Second

// Options carries optional daemon wiring.
type Options struct {
	// AuditWriter receives the permission audit trail; nil disables it.
	AuditWriter io.Writer

	// Offline skips the Telegram token verification on startup.
	// Used by tests; production startup verifies the token.
	Offline bool
}

// Run starts the bot and blocks until a signal or fatal error.
// Returns ipc.ErrAlreadyRunning when another instance owns the socket.
func Run(cfg *config.Config, opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	socketPath := cfg.EffectiveSocketPath()

	if err := ipc.DetectStaleSocket(socketPath); err != nil {
		return err
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.TelegramBotToken,
		Poller:  &tele.LongPoller{Timeout: pollTimeout},
		Offline: opts.Offline,
	})
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	var auditLog *audit.Logger
	if opts.AuditWriter != nil {
		auditLog = audit.NewLogger(opts.AuditWriter)
	}

	registry := pending.NewRegistry()
	replies := pending.NewReplyState()
	client := telegram.NewClient(bot)
	dispatcher := telegram.NewDispatcher(client, registry, replies, cfg.AllowedChatIDs, auditLog)
	handler := telegram.NewHandler(client, dispatcher, registry, replies, cfg, auditLog)
	telegram.Bind(bot, handler)

	server := ipc.NewServer(socketPath, time.Duration(cfg.TimeoutSeconds)*time.Second, dispatcher)
	if err := server.Listen(); err != nil {
		return err
	}

	// Any loop terminating on its own is fatal.
	fatal := make(chan error, 2)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := server.Serve(ctx); err != nil {
			fatal <- fmt.Errorf("socket server: %w", err)
			return
		}
		if ctx.Err() == nil {
			fatal <- errors.New("socket server stopped unexpectedly")
		}
	}()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		bot.Start()
		if ctx.Err() == nil {
			fatal <- errors.New("telegram poller stopped unexpectedly")
		}
	}()

	clog.Info("bot started, listening for permission requests")

	var runErr error
	select {
	case <-ctx.Done():
		clog.Info("shutdown signal received")
	case runErr = <-fatal:
		clog.Error("fatal: %v", runErr)
	}

	cancel()
	shutdown(bot, dispatcher, serverDone, pollerDone)

	// The server unlinks the socket on its own exit path; this covers
	// the fatal-error case where it never got that far.
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		clog.Warn("failed to remove socket file: %v", err)
	}

	return runErr
}

// shutdown drains pending requests so in-flight connections answer
// with Timeout, then waits (bounded) for the loops to exit.
func shutdown(bot *tele.Bot, dispatcher *telegram.Dispatcher, serverDone, pollerDone <-chan struct{}) {
	if n := dispatcher.CancelAll(); n > 0 {
		clog.Info("resolved %d pending request(s) as timeout on shutdown", n)
	}

	go bot.Stop()

	deadline := time.After(8 * time.Second)
	for _, ch := range []<-chan struct{}{serverDone, pollerDone} {
		select {
		case <-ch:
		case <-deadline:
			clog.Warn("shutdown deadline exceeded, exiting anyway")
			return
		}
	}
}
