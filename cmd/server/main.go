package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"term-chatroom/auth"
	"term-chatroom/infrastructure/httpapi"
	"term-chatroom/infrastructure/ws"
	"term-chatroom/internal/logs"
	"term-chatroom/moderation"
	"term-chatroom/observability"
	"term-chatroom/projection"
	"term-chatroom/repositories"
	"term-chatroom/runtime"
	"term-chatroom/runtime/workers"
	"term-chatroom/services"
	"term-chatroom/sink"
)

// Exit codes give a meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main stays a thin wrapper so every defer in run executes before exit.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Releases the directory lock and flushes buffers before exit.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Chat core
	moderator, err := loadModerator(config, charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}

	metrics := observability.NewChatMetrics()
	engine := runtime.NewRoomEngine(logger, config.HistoryCapacity, moderator, metrics)

	messageRepository := repositories.NewMessageRepository(db, logger)
	recent, err := messageRepository.GetRecent(config.HistoryCapacity)
	if err != nil {
		return exitRuntime, fmt.Errorf("history replay failed: %w", err)
	}
	engine.Restore(repositories.ToChatMessages(recent))
	logger.Info("history restored", "messages", len(recent), "last_sequence", engine.LastSequence())

	diskSink := sink.NewDiskSink(messageRepository, logger, metrics, config.DiskSinkBufferSize)
	timeline := projection.NewTimeline()
	engine.Add(diskSink, timeline)

	// 4. Supervision
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthWorker := workers.NewHealthMonitoringWorker(logger, engine, metrics, config.MetricInterval)
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(diskSink, healthWorker)
	go supervisor.Run(ctx)

	// 5. HTTP & WebSocket surface
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens)
	authHandler := httpapi.NewAuthHandler(logger, authService)
	chatHandler := ws.NewHandler(logger, services.NewChatService(engine), tokens,
		config.ConnectionBufferSize, config.WriteTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.Handle("/ws", chatHandler)
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteStats(w, metrics.Stats())
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting chat server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

// loadModerator builds the censoring dictionary from the configured
// word file, one word per line. No file means moderation is off.
func loadModerator(config Config, replacement rune, logger *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredWordsFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(config.CensoredWordsFile)
	if err != nil {
		return nil, fmt.Errorf("censored words file: %w", err)
	}

	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if word := strings.TrimSpace(line); word != "" {
			words = append(words, word)
		}
	}

	moderator, err := moderation.NewModerator(words, replacement, logger)
	if err != nil {
		return nil, fmt.Errorf("moderator init: %w", err)
	}
	logger.Info("moderation enabled", "words", len(words))
	return moderator, nil
}
