package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string         `yaml:"discord_token"`
	Database      DatabaseConfig `yaml:"database"`
	LogLevel      string         `yaml:"log_level"`
	Health        HealthConfig   `yaml:"health"`
	Automod       AutomodConfig  `yaml:"automod"`
	Summary       SummaryConfig  `yaml:"summary"`
	Notifications NotifyConfig   `yaml:"notifications"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AutomodConfig struct {
	PremiumAll          bool   `yaml:"premium_all"`
	CounterBackend      string `yaml:"counter_backend"`
	RedisURL            string `yaml:"redis_url"`
	RuleCacheSize       int    `yaml:"rule_cache_size"`
	RuleCacheTTLSeconds int    `yaml:"rule_cache_ttl_seconds"`
	NoticeTTLSeconds    int    `yaml:"notice_ttl_seconds"`
}

func (a AutomodConfig) RuleCacheTTL() time.Duration {
	return time.Duration(a.RuleCacheTTLSeconds) * time.Second
}

func (a AutomodConfig) NoticeTTL() time.Duration {
	return time.Duration(a.NoticeTTLSeconds) * time.Second
}

type SummaryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Info    int `yaml:"info"`
}

func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "/data/warden.db"},
		LogLevel: "info",
		Health:   HealthConfig{Enabled: false, Addr: ":8080"},
		Automod: AutomodConfig{
			PremiumAll:          false,
			CounterBackend:      "sql",
			RedisURL:            "redis://localhost:6379/0",
			RuleCacheSize:       1024,
			RuleCacheTTLSeconds: 30,
			NoticeTTLSeconds:    5,
		},
		Summary: SummaryConfig{Enabled: true, Schedule: "0 9 * * *"},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Info:    0x3B82F6,
			},
		},
	}
}

// Read layers defaults, .env, the YAML file at CONFIG_PATH and the
// environment. It does not require a token, so offline tools can use it.
func Read() (Config, error) {
	cfg := DefaultConfig()

	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.Database.Driver = normalizeDriver(cfg.Database.Driver)
	cfg.Automod.CounterBackend = normalizeBackend(cfg.Automod.CounterBackend)
	return cfg, nil
}

func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.Database.Driver = envString("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envString("DATABASE_URL", cfg.Database.DSN)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Automod.PremiumAll = envBool("AUTOMOD_PREMIUM_ALL", cfg.Automod.PremiumAll)
	cfg.Automod.CounterBackend = envString("AUTOMOD_COUNTER_BACKEND", cfg.Automod.CounterBackend)
	cfg.Automod.RedisURL = envString("REDIS_URL", cfg.Automod.RedisURL)
	cfg.Automod.RuleCacheSize = envInt("AUTOMOD_RULE_CACHE_SIZE", cfg.Automod.RuleCacheSize)
	cfg.Automod.RuleCacheTTLSeconds = envInt("AUTOMOD_RULE_CACHE_TTL_SECONDS", cfg.Automod.RuleCacheTTLSeconds)
	cfg.Automod.NoticeTTLSeconds = envInt("AUTOMOD_NOTICE_TTL_SECONDS", cfg.Automod.NoticeTTLSeconds)
	cfg.Summary.Enabled = envBool("SUMMARY_ENABLED", cfg.Summary.Enabled)
	cfg.Summary.Schedule = envString("SUMMARY_SCHEDULE", cfg.Summary.Schedule)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Info = envInt("EMBED_COLOR_INFO", cfg.Notifications.EmbedColors.Info)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeDriver(value string) string {
	switch strings.ToLower(value) {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	default:
		return "sqlite"
	}
}

func normalizeBackend(value string) string {
	switch strings.ToLower(value) {
	case "redis":
		return "redis"
	default:
		return "sql"
	}
}
