package training

import (
	"fmt"
	"math"

	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// varSmoothing is the fraction of the largest feature variance added to
// every per-class variance
const varSmoothing = 1e-9

// NaiveBayesTrainer fits Gaussian naive Bayes
type NaiveBayesTrainer struct{}

// NaiveBayesModel holds per-class Gaussian parameters
type NaiveBayesModel struct {
	ClassCodes []float64
	LogPriors  []float64
	Means      [][]float64 // class x feature
	Variances  [][]float64 // class x feature, smoothed
}

// NewNaiveBayesTrainer creates a new naive Bayes trainer
func NewNaiveBayesTrainer() *NaiveBayesTrainer {
	return &NaiveBayesTrainer{}
}

// Validate gates naive Bayes to classification targets
func (t *NaiveBayesTrainer) Validate(data *TrainingData) error {
	return checkTask(data, models.TaskTypeClassification,
		"Naive Bayes is for classification problems. Use Linear Regression for regression.")
}

// Train trains a naive Bayes model
func (t *NaiveBayesTrainer) Train(data *TrainingData) (*TrainingResult, error) {
	if err := t.Validate(data); err != nil {
		return nil, err
	}
	return fitAndPredict(data, t.fit)
}

// GetType returns the model type
func (t *NaiveBayesTrainer) GetType() models.ModelType {
	return models.ModelTypeNaiveBayes
}

func (t *NaiveBayesTrainer) fit(x *mat.Dense, y []float64) (Model, error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("feature rows %d do not match target length %d", n, len(y))
	}
	classes := sortedClasses(y)
	index := classIndex(classes)

	// Smoothing is relative to the widest feature over the whole partition.
	column := make([]float64, n)
	var maxVariance float64
	for j := 0; j < p; j++ {
		mat.Col(column, j, x)
		_, variance := stat.PopMeanVariance(column, nil)
		maxVariance = math.Max(maxVariance, variance)
	}
	epsilon := varSmoothing * maxVariance
	if epsilon == 0 {
		epsilon = varSmoothing
	}

	members := make([][]int, len(classes))
	for i, v := range y {
		members[index[v]] = append(members[index[v]], i)
	}

	model := &NaiveBayesModel{
		ClassCodes: classes,
		LogPriors:  make([]float64, len(classes)),
		Means:      make([][]float64, len(classes)),
		Variances:  make([][]float64, len(classes)),
	}
	for c, rows := range members {
		model.LogPriors[c] = math.Log(float64(len(rows)) / float64(n))
		model.Means[c] = make([]float64, p)
		model.Variances[c] = make([]float64, p)
		values := make([]float64, len(rows))
		for j := 0; j < p; j++ {
			for k, i := range rows {
				values[k] = x.At(i, j)
			}
			mean, variance := stat.PopMeanVariance(values, nil)
			model.Means[c][j] = mean
			model.Variances[c][j] = variance + epsilon
		}
	}
	return model, nil
}

// jointLogLikelihood returns log P(c) + sum_j log N(x_j | mu_cj, var_cj)
func (m *NaiveBayesModel) jointLogLikelihood(row []float64) []float64 {
	jll := make([]float64, len(m.ClassCodes))
	for c := range m.ClassCodes {
		sum := m.LogPriors[c]
		for j, v := range row {
			dist := distuv.Normal{Mu: m.Means[c][j], Sigma: math.Sqrt(m.Variances[c][j])}
			sum += dist.LogProb(v)
		}
		jll[c] = sum
	}
	return jll
}

// PredictProba returns per-class probabilities in ClassCodes order
func (m *NaiveBayesModel) PredictProba(x mat.Matrix) [][]float64 {
	n, p := x.Dims()
	row := make([]float64, p)
	probabilities := make([][]float64, n)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		jll := m.jointLogLikelihood(row)
		lse := floats.LogSumExp(jll)
		for c := range jll {
			jll[c] = math.Exp(jll[c] - lse)
		}
		probabilities[i] = jll
	}
	return probabilities
}

// Predict returns the most probable class code for each row
func (m *NaiveBayesModel) Predict(x mat.Matrix) []float64 {
	n, p := x.Dims()
	row := make([]float64, p)
	predictions := make([]float64, n)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		predictions[i] = m.ClassCodes[floats.MaxIdx(m.jointLogLikelihood(row))]
	}
	return predictions
}

// Coefficients returns nil: naive Bayes has no linear coefficients
func (m *NaiveBayesModel) Coefficients() [][]float64 {
	return nil
}

// Classes returns the class codes seen during training
func (m *NaiveBayesModel) Classes() []float64 {
	return append([]float64(nil), m.ClassCodes...)
}
