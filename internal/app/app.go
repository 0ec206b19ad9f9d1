package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"chat-stream/backend/internal/api"
	"chat-stream/backend/internal/config"
	"chat-stream/backend/internal/database"
	"chat-stream/backend/internal/llm"
	"chat-stream/backend/internal/repository"
	"chat-stream/backend/internal/service"
)

const ollamaWaitLimit = 60 * time.Second

// App holds the wired application and the resources it must release.
type App struct {
	Config   *config.Config
	Store    repository.MessageRepository
	Provider llm.Provider
	Server   *http.Server

	closers []func() error
}

// NewApp connects the conversation store, builds the provider and wires the
// HTTP server. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	provider, err := newProvider(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Provider = provider

	chatService := service.NewChatService(store, provider, service.Settings{
		StreamModel:  cfg.StreamModel(),
		ReplyModel:   cfg.ReplyModel(),
		SystemPrompt: cfg.SystemPrompt,
		Options: llm.Options{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
		},
		FallbackReply:      cfg.FallbackReply,
		StreamErrorMessage: cfg.StreamErrorMessage,
	})

	router := api.NewRouter(api.NewChatHandler(chatService), api.NewHealthHandler(store), api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins(),
		FrontendDir:    cfg.FrontendDir,
	})

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.MessageRepository, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		slog.Info("Connected to SQLite database.", "path", cfg.DatabasePath)
		return repository.NewSQLiteRepository(db), nil

	case config.StorePostgres:
		db, err := database.InitPostgres(ctx, cfg.DatabaseURL, database.PostgresOptions{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		slog.Info("Connected to PostgreSQL database.")
		return repository.NewPostgresRepository(db), nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		slog.Info("Connected to Redis.", "addr", cfg.RedisAddr)
		return repository.NewRedisRepository(rdb), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
		})
	case config.ProviderOllama:
		return llm.NewOllamaProvider(cfg.OllamaURL)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

// Close releases the store connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LLMProvider == config.ProviderOllama {
		waitCtx, cancelWait := context.WithTimeout(ctx, ollamaWaitLimit)
		waitForOllama(waitCtx, cfg.OllamaURL, 3*time.Second)
		cancelWait()
	}

	a, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close store connection", "error", err)
		}
	}()
	slog.Info("Application initialized",
		"store", cfg.StoreDriver,
		"provider", a.Provider.Name(),
		"stream_model", cfg.StreamModel(),
		"reply_model", cfg.ReplyModel(),
	)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return 1
	}
	slog.Info("Server stopped successfully")
	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})))
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// waitForOllama polls the Ollama server until it answers or ctx ends. The
// server is started even if Ollama never comes up; requests then fail with
// the configured error message.
func waitForOllama(ctx context.Context, ollamaURL string, interval time.Duration) bool {
	slog.Info("Waiting for Ollama to be ready...", "url", ollamaURL)
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ollamaURL, nil)
		if err != nil {
			slog.Warn("Invalid Ollama URL", "url", ollamaURL, "error", err)
			return false
		}
		resp, err := client.Do(req)
		if err == nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in ollama health check", "error", bErr)
			}
			if resp.StatusCode == http.StatusOK {
				slog.Info("Ollama is ready.")
				return true
			}
		}
		slog.Debug("Ollama not ready yet, retrying...", "url", ollamaURL, "error", err, "interval", interval)

		select {
		case <-ctx.Done():
			slog.Warn("Stopped waiting for Ollama", "error", ctx.Err())
			return false
		case <-time.After(interval):
		}
	}
}
