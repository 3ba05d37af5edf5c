package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Selection SelectionConfig `mapstructure:"selection"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the sqlite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig configures the redis connection used for webhook idempotency
// and rate limiting.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GeminiConfig configures the primary generation provider.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenRouterConfig configures the fallback generation provider.
type OpenRouterConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SelectionConfig carries the per-purchase selection parameters.
type SelectionConfig struct {
	TotalRecipes         int           `mapstructure:"total_recipes"`
	NewRecipesPercentage int           `mapstructure:"new_recipes_percentage"`
	Servings             int           `mapstructure:"servings"`
	GenerationDelay      time.Duration `mapstructure:"generation_delay"`
	MealTypes            []string      `mapstructure:"meal_types"`
}

// MatcherConfig carries the name resolver tuning.
type MatcherConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// AdminConfig configures admin endpoint authentication.
type AdminConfig struct {
	Password  string        `mapstructure:"password"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// WebhookConfig configures the purchase webhook.
type WebhookConfig struct {
	Secret         string        `mapstructure:"secret"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// RateLimitConfig configures the injected request limiter.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("MENU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvs()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Gemini.APIKey == "" && cfg.OpenRouter.APIKey == "" {
		return nil, fmt.Errorf("at least one of GEMINI_API_KEY or OPENROUTER_API_KEY must be set")
	}
	if cfg.Selection.TotalRecipes <= 0 {
		return nil, fmt.Errorf("selection total recipes must be positive")
	}
	if cfg.Selection.NewRecipesPercentage < 0 || cfg.Selection.NewRecipesPercentage > 100 {
		return nil, fmt.Errorf("new recipes percentage must be in [0,100]")
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)

	viper.SetDefault("database.path", "data/menu.db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("openrouter.model", "anthropic/claude-3-haiku")
	viper.SetDefault("openrouter.timeout", 30*time.Second)

	viper.SetDefault("selection.total_recipes", 30)
	viper.SetDefault("selection.new_recipes_percentage", 25)
	viper.SetDefault("selection.servings", 4)
	viper.SetDefault("selection.generation_delay", 5*time.Second)
	// The live product plans dinners only; breakfast and lunch slots are
	// supported but not enabled by default.
	viper.SetDefault("selection.meal_types", []string{"dinner"})

	viper.SetDefault("matcher.threshold", 0.6)

	viper.SetDefault("admin.token_ttl", time.Hour)
	viper.SetDefault("webhook.idempotency_ttl", 24*time.Hour)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 60)
	viper.SetDefault("rate_limit.window", time.Minute)

	viper.SetDefault("log_level", "info")
}

func bindEnvs() {
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("selection.total_recipes", "SELECTION_TOTAL_RECIPES")
	viper.BindEnv("selection.new_recipes_percentage", "SELECTION_NEW_RECIPES_PERCENTAGE")
	viper.BindEnv("selection.generation_delay", "SELECTION_GENERATION_DELAY")
	viper.BindEnv("matcher.threshold", "MATCHER_THRESHOLD")
	viper.BindEnv("admin.password", "ADMIN_PASSWORD")
	viper.BindEnv("admin.jwt_secret", "ADMIN_JWT_SECRET")
	viper.BindEnv("webhook.secret", "WEBHOOK_SECRET")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")
}
