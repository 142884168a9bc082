package training

import (
	"fmt"

	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the singular value cutoff, relative to the largest one,
// below which a direction is treated as degenerate
const rankTolerance = 1e-10

// LinearRegressionTrainer fits ordinary least squares with an intercept
type LinearRegressionTrainer struct{}

// LinearModel is a fitted least-squares model
type LinearModel struct {
	Coef      []float64
	Intercept float64
}

// NewLinearRegressionTrainer creates a new linear regression trainer
func NewLinearRegressionTrainer() *LinearRegressionTrainer {
	return &LinearRegressionTrainer{}
}

// Validate gates linear regression to regression targets with at least three
// distinct training values
func (t *LinearRegressionTrainer) Validate(data *TrainingData) error {
	if err := checkTask(data, models.TaskTypeRegression,
		"Linear Regression is for regression problems. Use Logistic Regression for classification."); err != nil {
		return err
	}
	if unique := distinctCount(data.TrainLabels); unique < 3 {
		return models.NewValidationError(models.CodeInsufficientTargetVariety,
			"Target variable has only %d unique values. Consider using classification instead.", unique)
	}
	return nil
}

// Train trains a linear regression model
func (t *LinearRegressionTrainer) Train(data *TrainingData) (*TrainingResult, error) {
	if err := t.Validate(data); err != nil {
		return nil, err
	}
	return fitAndPredict(data, t.fit)
}

// GetType returns the model type
func (t *LinearRegressionTrainer) GetType() models.ModelType {
	return models.ModelTypeLinearRegression
}

// fit centers X and y, solves the least-squares problem by SVD and recovers
// the intercept from the means. Rank-deficient systems get the minimum-norm
// solution.
func (t *LinearRegressionTrainer) fit(x *mat.Dense, y []float64) (Model, error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("feature rows %d do not match target length %d", n, len(y))
	}

	xMean := make([]float64, p)
	column := make([]float64, n)
	centered := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		mat.Col(column, j, x)
		xMean[j] = stat.Mean(column, nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, column[i]-xMean[j])
		}
	}
	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	coef := make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, fmt.Errorf("SVD factorization failed")
	}
	if rank := svd.Rank(rankTolerance); rank > 0 {
		var solution mat.VecDense
		svd.SolveVecTo(&solution, mat.NewVecDense(n, yc), rank)
		for j := 0; j < p; j++ {
			coef[j] = solution.AtVec(j)
		}
	}

	return &LinearModel{
		Coef:      coef,
		Intercept: yMean - floats.Dot(xMean, coef),
	}, nil
}

// Predict returns x·coef + intercept for each row
func (m *LinearModel) Predict(x mat.Matrix) []float64 {
	n, _ := x.Dims()
	var out mat.VecDense
	out.MulVec(x, mat.NewVecDense(len(m.Coef), m.Coef))
	predictions := make([]float64, n)
	for i := range predictions {
		predictions[i] = out.AtVec(i) + m.Intercept
	}
	return predictions
}

// Coefficients returns the single coefficient row
func (m *LinearModel) Coefficients() [][]float64 {
	return [][]float64{append([]float64(nil), m.Coef...)}
}
