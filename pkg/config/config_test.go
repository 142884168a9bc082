package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig tests configuration loading
func TestLoadConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test-data", cfg.StorageDir)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

// TestLoadConfigDefaults tests default values
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development-data", cfg.StorageDir)
	assert.Equal(t, "supersecretkey", cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.DatasetCacheTTL)
	assert.Equal(t, "@every 10m", cfg.DatasetCacheSweep)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigInvalidFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigBadIntFallsBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
}

func TestLoadPipelineSettingsDefaults(t *testing.T) {
	settings, err := LoadPipelineSettings("")
	require.NoError(t, err)

	assert.Equal(t, int64(42), settings.RandomSeed)
	assert.Equal(t, DefaultContinuousKeywords, settings.ContinuousKeywords)
	assert.Equal(t, 5, settings.SamplePredictionLimit)
	assert.Equal(t, 20, settings.HistogramBins)
	assert.Equal(t, 1.0, settings.LogisticC)
}

func TestLoadPipelineSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := []byte("random_seed: 7\ncontinuous_keywords: [income]\nhistogram_bins: 10\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	settings, err := LoadPipelineSettings(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), settings.RandomSeed)
	assert.Equal(t, []string{"income"}, settings.ContinuousKeywords)
	assert.Equal(t, 10, settings.HistogramBins)
	// untouched keys keep defaults
	assert.Equal(t, 5, settings.SamplePredictionLimit)
	assert.Equal(t, 0.5, settings.MinAccuracy)
}

func TestLoadPipelineSettingsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative seed", "random_seed: -1\n"},
		{"zero bins", "histogram_bins: 0\n"},
		{"zero limit", "sample_prediction_limit: 0\n"},
		{"bad c", "logistic_c: 0\n"},
		{"malformed", "random_seed: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pipeline.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadPipelineSettings(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadPipelineSettingsMissingFile(t *testing.T) {
	_, err := LoadPipelineSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	// register cleanup for both keys, then clear them so the file can set them
	t.Setenv("INSIGHTFULL_DOTENV_PORT", "")
	t.Setenv("INSIGHTFULL_DOTENV_KEPT", "from-env")
	require.NoError(t, os.Unsetenv("INSIGHTFULL_DOTENV_PORT"))

	path := filepath.Join(t.TempDir(), ".env")
	content := "INSIGHTFULL_DOTENV_PORT=9191\nINSIGHTFULL_DOTENV_KEPT=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "9191", os.Getenv("INSIGHTFULL_DOTENV_PORT"))
	assert.Equal(t, "from-env", os.Getenv("INSIGHTFULL_DOTENV_KEPT"))
}
