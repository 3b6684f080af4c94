package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Classifier ClassifierConfig
	Wellness   WellnessConfig
	Exports    ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles redis-backed caching of counselor projections.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClassifierConfig configures the remote intent model. When disabled or
// unreachable the classifier answers from sentiment and keyword fallbacks.
type ClassifierConfig struct {
	Enabled       bool
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxInputRunes int
	MinConfidence float64
	PoolSize      int
}

// WellnessConfig holds the static inputs and thresholds of the risk pipeline.
type WellnessConfig struct {
	LexiconPath         string
	ResponseCatalogPath string
	DedupWindow         time.Duration
	PatternThreshold    int
	SessionIdleTTL      time.Duration
	RiskAlertThreshold  int
}

// ExportsConfig configures asynchronous alert exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	RetentionPeriod   time.Duration
	CleanupInterval   time.Duration
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 2*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	minConfidence := v.GetFloat64("CLASSIFIER_MIN_CONFIDENCE")
	if minConfidence <= 0 || minConfidence >= 1 {
		minConfidence = 0.3
	}
	cfg.Classifier = ClassifierConfig{
		Enabled:       v.GetBool("CLASSIFIER_ENABLED"),
		BaseURL:       v.GetString("CLASSIFIER_BASE_URL"),
		APIKey:        v.GetString("CLASSIFIER_API_KEY"),
		Model:         v.GetString("CLASSIFIER_MODEL"),
		Timeout:       parseDuration(v.GetString("CLASSIFIER_TIMEOUT"), 2*time.Second),
		MaxInputRunes: positiveOr(v.GetInt("CLASSIFIER_MAX_INPUT"), 512),
		MinConfidence: minConfidence,
		PoolSize:      positiveOr(v.GetInt("CLASSIFIER_POOL_SIZE"), 2),
	}

	cfg.Wellness = WellnessConfig{
		LexiconPath:         v.GetString("LEXICON_PATH"),
		ResponseCatalogPath: v.GetString("RESPONSE_CATALOG_PATH"),
		DedupWindow:         parseDuration(v.GetString("ALERT_DEDUP_WINDOW"), 30*time.Minute),
		PatternThreshold:    positiveOr(v.GetInt("PATTERN_THRESHOLD"), 3),
		SessionIdleTTL:      parseDuration(v.GetString("SESSION_IDLE_TTL"), 24*time.Hour),
		RiskAlertThreshold:  positiveOr(v.GetInt("RISK_ALERT_THRESHOLD"), 7),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_ALERT_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
		WorkerConcurrency: positiveOr(v.GetInt("EXPORTS_WORKER_CONCURRENCY"), 1),
		WorkerRetries:     positiveOr(v.GetInt("EXPORTS_WORKER_RETRIES"), 3),
		RetentionPeriod:   parseDuration(v.GetString("EXPORTS_RETENTION"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	return cfg
}

// defaults lists every recognised key with its development value.
var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "health_office",
	"DB_SSL_MODE":       "disable",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"ENABLE_CACHE":   false,
	"CACHE_TTL":      "2m",

	"JWT_SECRET":               devJWTSecret,
	"JWT_EXPIRATION":           "24h",
	"REFRESH_TOKEN_EXPIRATION": "168h",

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"CLASSIFIER_ENABLED":        false,
	"CLASSIFIER_BASE_URL":       "http://localhost:8000/v1",
	"CLASSIFIER_API_KEY":        "",
	"CLASSIFIER_MODEL":          "xlm-roberta-risk-intent",
	"CLASSIFIER_TIMEOUT":        "2s",
	"CLASSIFIER_MAX_INPUT":      512,
	"CLASSIFIER_MIN_CONFIDENCE": 0.3,
	"CLASSIFIER_POOL_SIZE":      2,

	"LEXICON_PATH":          "data/lexicon.json",
	"RESPONSE_CATALOG_PATH": "data/responses.json",
	"ALERT_DEDUP_WINDOW":    "30m",
	"PATTERN_THRESHOLD":     3,
	"SESSION_IDLE_TTL":      "24h",
	"RISK_ALERT_THRESHOLD":  7,

	"ENABLE_ALERT_EXPORTS":       false,
	"EXPORTS_STORAGE_DIR":        "./exports",
	"EXPORTS_SIGNED_URL_SECRET":  devExportsSecret,
	"EXPORTS_SIGNED_URL_TTL":     "30m",
	"EXPORTS_WORKER_CONCURRENCY": 1,
	"EXPORTS_WORKER_RETRIES":     3,
	"EXPORTS_RETENTION":          "24h",
	"EXPORTS_CLEANUP_INTERVAL":   "1h",
}

const (
	devJWTSecret     = "dev_secret"
	devExportsSecret = "dev_exports_secret"
)

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate rejects settings that would be unsafe or self-contradictory.
// Development secrets are refused in production.
func (c *Config) Validate() error {
	var problems []string
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
			problems = append(problems, "JWT_SECRET must be set in production")
		}
		if c.Exports.Enabled && (c.Exports.SignedURLSecret == "" || c.Exports.SignedURLSecret == devExportsSecret) {
			problems = append(problems, "EXPORTS_SIGNED_URL_SECRET must be set in production")
		}
	}
	if c.Exports.Enabled && c.Exports.RetentionPeriod < c.Exports.SignedURLTTL {
		problems = append(problems, "EXPORTS_RETENTION must not be shorter than EXPORTS_SIGNED_URL_TTL")
	}
	if c.JWT.RefreshExpiration <= c.JWT.Expiration {
		problems = append(problems, "REFRESH_TOKEN_EXPIRATION must exceed JWT_EXPIRATION")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
