package mlmodel

import (
	"math"
	"sort"

	"github.com/hs170703/insightfull/pkg/mlmodel/training"
	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// EvaluateRegression computes MSE, R² and RMSE on the test partition, plus
// the MSE of always predicting the training mean
func EvaluateRegression(yTrain, yTest, yPred []float64) *models.RegressionMetrics {
	mse := meanSquaredError(yTest, yPred)
	baseline := make([]float64, len(yTest))
	if len(yTrain) > 0 {
		trainMean := stat.Mean(yTrain, nil)
		for i := range baseline {
			baseline[i] = trainMean
		}
	}
	return &models.RegressionMetrics{
		MeanSquaredError: mse,
		R2Score:          r2Score(yTest, yPred),
		RMSE:             math.Sqrt(mse),
		BaselineMSE:      meanSquaredError(yTest, baseline),
	}
}

func meanSquaredError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i, v := range actual {
		d := v - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// r2Score is always finite: fewer than two samples score 0, and a constant
// actual series scores 1 for a perfect fit and 0 otherwise
func r2Score(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i, v := range actual {
		ssRes += (v - predicted[i]) * (v - predicted[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// EvaluateClassification computes accuracy and a per-label report over the
// union of labels present in actual and predicted codes
func EvaluateClassification(yTest, yPred []float64) *models.ClassificationMetrics {
	labelSet := make(map[float64]struct{})
	for _, v := range yTest {
		labelSet[v] = struct{}{}
	}
	for _, v := range yPred {
		labelSet[v] = struct{}{}
	}
	labels := make([]float64, 0, len(labelSet))
	for v := range labelSet {
		labels = append(labels, v)
	}
	sort.Float64s(labels)

	correct := 0
	truePositive := make(map[float64]int)
	predicted := make(map[float64]int)
	support := make(map[float64]int)
	for i, actual := range yTest {
		support[actual]++
		predicted[yPred[i]]++
		if actual == yPred[i] {
			correct++
			truePositive[actual]++
		}
	}

	accuracy := 0.0
	if len(yTest) > 0 {
		accuracy = float64(correct) / float64(len(yTest))
	}

	report := &models.ClassificationReport{
		PerClass: make(map[string]models.ClassScores, len(labels)),
		Accuracy: accuracy,
	}
	total := len(yTest)
	for _, label := range labels {
		scores := models.ClassScores{
			Precision: safeDivide(float64(truePositive[label]), float64(predicted[label])),
			Recall:    safeDivide(float64(truePositive[label]), float64(support[label])),
			Support:   support[label],
		}
		scores.F1Score = safeDivide(2*scores.Precision*scores.Recall, scores.Precision+scores.Recall)

		key := models.FormatNumber(label)
		report.Labels = append(report.Labels, key)
		report.PerClass[key] = scores

		report.MacroAvg.Precision += scores.Precision
		report.MacroAvg.Recall += scores.Recall
		report.MacroAvg.F1Score += scores.F1Score
		weight := safeDivide(float64(scores.Support), float64(total))
		report.WeightedAvg.Precision += weight * scores.Precision
		report.WeightedAvg.Recall += weight * scores.Recall
		report.WeightedAvg.F1Score += weight * scores.F1Score
	}
	if k := float64(len(labels)); k > 0 {
		report.MacroAvg.Precision /= k
		report.MacroAvg.Recall /= k
		report.MacroAvg.F1Score /= k
	}
	report.MacroAvg.Support = total
	report.WeightedAvg.Support = total

	return &models.ClassificationMetrics{Accuracy: accuracy, Report: report}
}

// safeDivide returns 0 when the denominator is 0
func safeDivide(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// FeatureImportance maps each feature to the first coefficient row of the
// model. Models without coefficients report 0 for every feature.
func FeatureImportance(featureNames []string, model training.Model) map[string]float64 {
	importance := make(map[string]float64, len(featureNames))
	var row []float64
	if coef := model.Coefficients(); len(coef) > 0 {
		row = coef[0]
	}
	for i, name := range featureNames {
		if i < len(row) {
			importance[name] = row[i]
		} else {
			importance[name] = 0
		}
	}
	return importance
}
