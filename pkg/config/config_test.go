package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 30*time.Minute, cfg.Wellness.DedupWindow)
	assert.Equal(t, 3, cfg.Wellness.PatternThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Wellness.SessionIdleTTL)
	assert.Equal(t, 7, cfg.Wellness.RiskAlertThreshold)
	assert.Equal(t, 0.3, cfg.Classifier.MinConfidence)
	assert.Equal(t, 512, cfg.Classifier.MaxInputRunes)
	assert.Equal(t, "data/lexicon.json", cfg.Wellness.LexiconPath)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALERT_DEDUP_WINDOW", "10m")
	v.Set("PATTERN_THRESHOLD", 0)
	v.Set("CLASSIFIER_MIN_CONFIDENCE", 1.5)
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 10*time.Minute, cfg.Wellness.DedupWindow)
	assert.Equal(t, 3, cfg.Wellness.PatternThreshold)
	assert.Equal(t, 0.3, cfg.Classifier.MinConfidence)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, time.Second, parseDuration("1s", time.Minute))
}

func TestValidate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	assert.NoError(t, fromViper(v).Validate())

	v.Set("ENV", EnvProduction)
	v.Set("ENABLE_ALERT_EXPORTS", true)
	err := fromViper(v).Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "EXPORTS_SIGNED_URL_SECRET")

	v.Set("JWT_SECRET", "prod-jwt")
	v.Set("EXPORTS_SIGNED_URL_SECRET", "prod-exports")
	v.Set("EXPORTS_RETENTION", "10m")
	assert.ErrorContains(t, fromViper(v).Validate(), "EXPORTS_RETENTION")

	v.Set("EXPORTS_RETENTION", "24h")
	assert.NoError(t, fromViper(v).Validate())
}

func TestFromViperExportSchedule(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("EXPORTS_CLEANUP_INTERVAL", "15m")

	cfg := fromViper(v)
	assert.Equal(t, 15*time.Minute, cfg.Exports.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.Exports.RetentionPeriod)
}
