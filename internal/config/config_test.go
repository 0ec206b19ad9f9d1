package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults with credential present", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")

		cfg, err := load(viper.New())
		require.NoError(t, err)

		assert.Equal(t, 8000, cfg.AppPort)
		assert.Equal(t, StoreSQLite, cfg.StoreDriver)
		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, 2048, cfg.MaxOutputTokens)
		assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
		assert.Equal(t, "gemini-2.0-flash-exp", cfg.StreamModel())
		assert.Equal(t, "gemini-2.5-flash", cfg.ReplyModel())
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	})

	t.Run("Missing credential is a startup error", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")

		_, err := load(viper.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "ollama")
		t.Setenv("OLLAMA_MODEL", "gemma3")
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "postgres://chat@localhost/chat")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

		cfg, err := load(viper.New())
		require.NoError(t, err)

		assert.Equal(t, "gemma3", cfg.StreamModel())
		assert.Equal(t, "gemma3", cfg.ReplyModel())
		assert.Equal(t, StorePostgres, cfg.StoreDriver)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppPort:         8000,
			StoreDriver:     StoreSQLite,
			DatabasePath:    "/tmp/chat.db",
			LLMProvider:     ProviderGemini,
			GeminiAPIKey:    "key",
			MaxOutputTokens: 2048,
			Temperature:     0.7,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreDriver = "mongo" }, "STORE_DRIVER"},
		{"postgres without url", func(c *Config) { c.StoreDriver = StorePostgres }, "DATABASE_URL"},
		{"redis without addr", func(c *Config) { c.StoreDriver = StoreRedis }, "REDIS_ADDR"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "openai" }, "LLM_PROVIDER"},
		{"blank key", func(c *Config) { c.GeminiAPIKey = "  " }, "GEMINI_API_KEY"},
		{"zero tokens", func(c *Config) { c.MaxOutputTokens = 0 }, "MAX_OUTPUT_TOKENS"},
		{"hot temperature", func(c *Config) { c.Temperature = 2.5 }, "TEMPERATURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
