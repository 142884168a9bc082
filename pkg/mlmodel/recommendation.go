package mlmodel

import (
	"github.com/hs170703/insightfull/pkg/models"
)

const (
	RecommendAlternativeClassifiers = "Consider trying different classification algorithms like Random Forest or SVM"
	RecommendNonLinearModels        = "Consider trying non-linear models like Random Forest or Polynomial Regression"
	RecommendClassification         = "Target has few unique values - consider classification instead"
)

// RecommendationEngine turns metric thresholds into advisory text
type RecommendationEngine struct {
	minAccuracy              float64
	minR2                    float64
	classificationHintUnique int
}

// NewRecommendationEngine creates a new recommendation engine
func NewRecommendationEngine(minAccuracy, minR2 float64, classificationHintUnique int) *RecommendationEngine {
	return &RecommendationEngine{
		minAccuracy:              minAccuracy,
		minR2:                    minR2,
		classificationHintUnique: classificationHintUnique,
	}
}

// Recommend returns advice for the evaluated metrics. The result is never
// nil; no triggered condition yields an empty list.
func (re *RecommendationEngine) Recommend(metrics models.Metrics, trainTargetUnique int) []string {
	recommendations := []string{}

	if metrics.ClassificationMetrics != nil {
		if metrics.ClassificationMetrics.Accuracy < re.minAccuracy {
			recommendations = append(recommendations, RecommendAlternativeClassifiers)
		}
		return recommendations
	}

	if metrics.RegressionMetrics != nil && metrics.RegressionMetrics.R2Score < re.minR2 {
		recommendations = append(recommendations, RecommendNonLinearModels)
		if trainTargetUnique < re.classificationHintUnique {
			recommendations = append(recommendations, RecommendClassification)
		}
	}
	return recommendations
}
