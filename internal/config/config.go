package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	DatabasePath   string `mapstructure:"DATABASE_PATH"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`

	LLMProvider       string  `mapstructure:"LLM_PROVIDER"`
	GeminiAPIKey      string  `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL     string  `mapstructure:"GEMINI_BASE_URL"`
	GeminiStreamModel string  `mapstructure:"GEMINI_STREAM_MODEL"`
	GeminiModel       string  `mapstructure:"GEMINI_MODEL"`
	OllamaURL         string  `mapstructure:"OLLAMA_URL"`
	OllamaModel       string  `mapstructure:"OLLAMA_MODEL"`
	MaxOutputTokens   int     `mapstructure:"MAX_OUTPUT_TOKENS"`
	Temperature       float64 `mapstructure:"TEMPERATURE"`
	SystemPrompt      string  `mapstructure:"SYSTEM_PROMPT"`

	FallbackReply      string `mapstructure:"FALLBACK_REPLY"`
	StreamErrorMessage string `mapstructure:"STREAM_ERROR_MESSAGE"`

	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	FrontendDir        string        `mapstructure:"FRONTEND_DIR"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("LOG_LEVEL", "INFO")

	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("DATABASE_PATH", "/data/chat.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LLM_PROVIDER", ProviderGemini)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("GEMINI_STREAM_MODEL", "gemini-2.0-flash-exp")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("OLLAMA_URL", "http://ollama:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.2")
	v.SetDefault("MAX_OUTPUT_TOKENS", 2048)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("SYSTEM_PROMPT", "")

	v.SetDefault("FALLBACK_REPLY", "I'm sorry, I couldn't generate a reply.")
	v.SetDefault("STREAM_ERROR_MESSAGE", "Sorry, I'm having trouble responding right now.")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("FRONTEND_DIR", "./frontend/dist")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
}

// LoadConfig reads configuration from an optional .env file and the process
// environment, environment variables taking precedence.
func LoadConfig() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted. A missing provider
// credential is a startup error, never a per-request one.
func (c *Config) Validate() error {
	if c.AppPort <= 0 {
		return fmt.Errorf("APP_PORT must be > 0")
	}

	switch c.StoreDriver {
	case StoreSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH cannot be empty")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.LLMProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL cannot be empty")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("MAX_OUTPUT_TOKENS must be > 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be within [0, 2]")
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// StreamModel returns the model used by the streaming relay.
func (c *Config) StreamModel() string {
	if c.LLMProvider == ProviderOllama {
		return c.OllamaModel
	}
	return c.GeminiStreamModel
}

// ReplyModel returns the model used by the non-streaming endpoint.
func (c *Config) ReplyModel() string {
	if c.LLMProvider == ProviderOllama {
		return c.OllamaModel
	}
	return c.GeminiModel
}
