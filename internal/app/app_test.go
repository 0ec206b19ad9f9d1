package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-stream/backend/internal/config"
	"chat-stream/backend/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppPort:            8000,
		LogLevel:           "DEBUG",
		StoreDriver:        config.StoreSQLite,
		DatabasePath:       filepath.Join(t.TempDir(), "chat.db"),
		LLMProvider:        config.ProviderGemini,
		GeminiAPIKey:       "test-key",
		GeminiStreamModel:  "gemini-2.0-flash-exp",
		GeminiModel:        "gemini-2.5-flash",
		MaxOutputTokens:    2048,
		Temperature:        0.7,
		CORSAllowedOrigins: "*",
		ShutdownTimeout:    time.Second,
	}
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()

	t.Run("SQLite and Gemini", func(t *testing.T) {
		app, err := NewApp(ctx, testConfig(t))
		require.NoError(t, err)
		defer func() { require.NoError(t, app.Close()) }()

		assert.NotNil(t, app.Store)
		assert.Equal(t, "gemini", app.Provider.Name())
		require.NotNil(t, app.Server)
		assert.Equal(t, ":8000", app.Server.Addr)
		assert.Zero(t, app.Server.WriteTimeout)

		rr := httptest.NewRecorder()
		app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Redis and Ollama", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.StoreDriver = config.StoreRedis
		cfg.RedisAddr = mr.Addr()
		cfg.LLMProvider = config.ProviderOllama
		cfg.OllamaURL = "http://localhost:11434"
		cfg.OllamaModel = "llama3.2"

		app, err := NewApp(ctx, cfg)
		require.NoError(t, err)
		defer func() { require.NoError(t, app.Close()) }()

		assert.Equal(t, "ollama", app.Provider.Name())
		require.NoError(t, app.Store.AddMessage(ctx, &model.Message{SessionID: "s1", Role: model.RoleUser, Content: "Hi"}))
		messages, err := app.Store.ListBySession(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, messages, 1)
	})

	t.Run("Unreachable redis fails startup", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StoreDriver = config.StoreRedis
		cfg.RedisAddr = "127.0.0.1:1"

		_, err := NewApp(ctx, cfg)
		assert.Error(t, err)
	})

	t.Run("Missing Gemini key fails startup", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GeminiAPIKey = ""

		_, err := NewApp(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestWaitForOllama(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.True(t, waitForOllama(context.Background(), server.URL, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, waitForOllama(ctx, "http://127.0.0.1:1", time.Millisecond))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
