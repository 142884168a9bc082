package mlmodel

import (
	"testing"

	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	engine := NewRecommendationEngine(0.5, 0.1, 10)

	tests := []struct {
		name     string
		metrics  models.Metrics
		unique   int
		expected []string
	}{
		{
			name: "Low accuracy classifier",
			metrics: models.Metrics{
				ClassificationMetrics: &models.ClassificationMetrics{Accuracy: 0.4},
			},
			unique:   3,
			expected: []string{RecommendAlternativeClassifiers},
		},
		{
			name: "Accuracy at threshold",
			metrics: models.Metrics{
				ClassificationMetrics: &models.ClassificationMetrics{Accuracy: 0.5},
			},
			unique:   3,
			expected: []string{},
		},
		{
			name: "Poor regression with many target values",
			metrics: models.Metrics{
				RegressionMetrics: &models.RegressionMetrics{R2Score: 0.05},
			},
			unique:   40,
			expected: []string{RecommendNonLinearModels},
		},
		{
			name: "Poor regression with few target values",
			metrics: models.Metrics{
				RegressionMetrics: &models.RegressionMetrics{R2Score: -2},
			},
			unique:   4,
			expected: []string{RecommendNonLinearModels, RecommendClassification},
		},
		{
			name: "Few target values but good fit",
			metrics: models.Metrics{
				RegressionMetrics: &models.RegressionMetrics{R2Score: 0.9},
			},
			unique:   4,
			expected: []string{},
		},
		{
			name:     "No metrics",
			metrics:  models.Metrics{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Recommend(tt.metrics, tt.unique)
			assert.NotNil(t, got)
			assert.Equal(t, tt.expected, got)
		})
	}
}
