package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultContinuousKeywords are column-name substrings that mark a numeric
// target as continuous even when it has few distinct values
var DefaultContinuousKeywords = []string{
	"sales", "revenue", "profit", "amount", "spend",
	"cost", "price", "value", "score", "rating",
}

// PipelineSettings tunes the training pipeline
type PipelineSettings struct {
	RandomSeed               int64    `yaml:"random_seed"`
	ContinuousKeywords       []string `yaml:"continuous_keywords"`
	SamplePredictionLimit    int      `yaml:"sample_prediction_limit"`
	HistogramBins            int      `yaml:"histogram_bins"`
	MinAccuracy              float64  `yaml:"min_accuracy"`
	MinR2                    float64  `yaml:"min_r2"`
	ClassificationHintUnique int      `yaml:"classification_hint_unique"`
	LogisticMaxIterations    int      `yaml:"logistic_max_iterations"`
	LogisticC                float64  `yaml:"logistic_c"`
}

// DefaultPipelineSettings returns the built-in pipeline settings
func DefaultPipelineSettings() *PipelineSettings {
	keywords := make([]string, len(DefaultContinuousKeywords))
	copy(keywords, DefaultContinuousKeywords)
	return &PipelineSettings{
		RandomSeed:               42,
		ContinuousKeywords:       keywords,
		SamplePredictionLimit:    5,
		HistogramBins:            20,
		MinAccuracy:              0.5,
		MinR2:                    0.1,
		ClassificationHintUnique: 10,
		LogisticMaxIterations:    1000,
		LogisticC:                1.0,
	}
}

// LoadPipelineSettings reads settings from a YAML file. Keys absent from the
// file keep their defaults. An empty path returns the defaults.
func LoadPipelineSettings(path string) (*PipelineSettings, error) {
	settings := DefaultPipelineSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks that the settings are usable
func (s *PipelineSettings) Validate() error {
	if s.RandomSeed < 0 {
		return fmt.Errorf("random_seed must not be negative")
	}
	if s.SamplePredictionLimit <= 0 {
		return fmt.Errorf("sample_prediction_limit must be positive")
	}
	if s.HistogramBins <= 0 {
		return fmt.Errorf("histogram_bins must be positive")
	}
	if s.LogisticMaxIterations <= 0 {
		return fmt.Errorf("logistic_max_iterations must be positive")
	}
	if s.LogisticC <= 0 {
		return fmt.Errorf("logistic_c must be positive")
	}
	return nil
}
