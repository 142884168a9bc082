package training

import (
	"fmt"
	"math"

	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegressionTrainer fits L2-regularised logistic regression with
// L-BFGS. Two training classes give a binary model with one coefficient row;
// more give a multinomial (softmax) model with one row per class.
type LogisticRegressionTrainer struct {
	c             float64
	maxIterations int
}

// LogisticModel is a fitted logistic regression model
type LogisticModel struct {
	ClassCodes []float64
	Coef       [][]float64
	Intercept  []float64
	Converged  bool
}

// NewLogisticRegressionTrainer creates a new logistic regression trainer
func NewLogisticRegressionTrainer(c float64, maxIterations int) *LogisticRegressionTrainer {
	if c <= 0 {
		c = 1.0
	}
	if maxIterations <= 0 {
		maxIterations = 1000
	}
	return &LogisticRegressionTrainer{c: c, maxIterations: maxIterations}
}

// Validate gates logistic regression to classification targets
func (t *LogisticRegressionTrainer) Validate(data *TrainingData) error {
	return checkTask(data, models.TaskTypeClassification,
		"Logistic Regression is for classification problems. Use Linear Regression for regression.")
}

// Train trains a logistic regression model
func (t *LogisticRegressionTrainer) Train(data *TrainingData) (*TrainingResult, error) {
	if err := t.Validate(data); err != nil {
		return nil, err
	}
	return fitAndPredict(data, t.fit)
}

// GetType returns the model type
func (t *LogisticRegressionTrainer) GetType() models.ModelType {
	return models.ModelTypeLogisticRegression
}

func (t *LogisticRegressionTrainer) fit(x *mat.Dense, y []float64) (Model, error) {
	classes := sortedClasses(y)
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic regression needs samples of at least 2 classes, got %d", len(classes))
	}
	n, p := x.Dims()
	index := classIndex(classes)
	labels := make([]int, n)
	for i, v := range y {
		labels[i] = index[v]
	}

	// The binary model has a single weight row against the higher class.
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	objective := &logisticObjective{
		x:      x,
		labels: labels,
		rows:   rows,
		p:      p,
		alpha:  1 / (t.c * float64(n)),
	}

	problem := optimize.Problem{
		Func: objective.loss,
		Grad: objective.grad,
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-4,
		MajorIterations:   t.maxIterations,
	}
	result, err := optimize.Minimize(problem, make([]float64, rows*(p+1)), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("logistic regression optimisation failed: %w", err)
	}

	model := &LogisticModel{
		ClassCodes: classes,
		Coef:       make([][]float64, rows),
		Intercept:  make([]float64, rows),
		Converged:  err == nil && result.Status == optimize.GradientThreshold,
	}
	for r := 0; r < rows; r++ {
		w, b := objective.unpack(result.X, r)
		model.Coef[r] = append([]float64(nil), w...)
		model.Intercept[r] = b
	}
	return model, nil
}

// logisticObjective is the mean log loss plus an L2 penalty on the weights.
// Parameters are laid out row by row as [w_0..w_p-1, b].
type logisticObjective struct {
	x      *mat.Dense
	labels []int
	rows   int
	p      int
	alpha  float64
}

func (o *logisticObjective) unpack(params []float64, row int) ([]float64, float64) {
	start := row * (o.p + 1)
	return params[start : start+o.p], params[start+o.p]
}

func (o *logisticObjective) scores(params []float64, i int, out []float64) {
	xi := o.x.RawRowView(i)
	for r := 0; r < o.rows; r++ {
		w, b := o.unpack(params, r)
		out[r] = floats.Dot(w, xi) + b
	}
}

func (o *logisticObjective) penalty(params []float64) float64 {
	var sum float64
	for r := 0; r < o.rows; r++ {
		w, _ := o.unpack(params, r)
		sum += floats.Dot(w, w)
	}
	return 0.5 * o.alpha * sum
}

func (o *logisticObjective) loss(params []float64) float64 {
	n := len(o.labels)
	z := make([]float64, o.rows)
	var total float64
	for i := 0; i < n; i++ {
		o.scores(params, i, z)
		if o.rows == 1 {
			// log(1+exp(-z)) for the positive class, log(1+exp(z)) otherwise
			s := z[0]
			if o.labels[i] == 0 {
				s = -s
			}
			total += softplus(-s)
			continue
		}
		total += floats.LogSumExp(z) - z[o.labels[i]]
	}
	return total/float64(n) + o.penalty(params)
}

func (o *logisticObjective) grad(grad, params []float64) {
	n := len(o.labels)
	for i := range grad {
		grad[i] = 0
	}
	z := make([]float64, o.rows)
	residual := make([]float64, o.rows)
	for i := 0; i < n; i++ {
		o.scores(params, i, z)
		if o.rows == 1 {
			target := 0.0
			if o.labels[i] == 1 {
				target = 1
			}
			residual[0] = sigmoid(z[0]) - target
		} else {
			lse := floats.LogSumExp(z)
			for r := range z {
				residual[r] = math.Exp(z[r] - lse)
			}
			residual[o.labels[i]] -= 1
		}
		xi := o.x.RawRowView(i)
		for r := 0; r < o.rows; r++ {
			start := r * (o.p + 1)
			floats.AddScaled(grad[start:start+o.p], residual[r], xi)
			grad[start+o.p] += residual[r]
		}
	}
	floats.Scale(1/float64(n), grad)
	for r := 0; r < o.rows; r++ {
		start := r * (o.p + 1)
		floats.AddScaled(grad[start:start+o.p], o.alpha, params[start:start+o.p])
	}
}

// PredictProba returns per-class probabilities in ClassCodes order
func (m *LogisticModel) PredictProba(x mat.Matrix) [][]float64 {
	n, _ := x.Dims()
	probabilities := make([][]float64, n)
	row := make([]float64, len(m.Coef[0]))
	z := make([]float64, len(m.Coef))
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		for r, w := range m.Coef {
			z[r] = floats.Dot(w, row) + m.Intercept[r]
		}
		if len(m.Coef) == 1 {
			p1 := sigmoid(z[0])
			probabilities[i] = []float64{1 - p1, p1}
			continue
		}
		lse := floats.LogSumExp(z)
		proba := make([]float64, len(z))
		for r := range z {
			proba[r] = math.Exp(z[r] - lse)
		}
		probabilities[i] = proba
	}
	return probabilities
}

// Predict returns the most probable class code for each row
func (m *LogisticModel) Predict(x mat.Matrix) []float64 {
	probabilities := m.PredictProba(x)
	predictions := make([]float64, len(probabilities))
	for i, proba := range probabilities {
		predictions[i] = m.ClassCodes[floats.MaxIdx(proba)]
	}
	return predictions
}

// Coefficients returns the fitted coefficient rows
func (m *LogisticModel) Coefficients() [][]float64 {
	out := make([][]float64, len(m.Coef))
	for i, row := range m.Coef {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Classes returns the class codes seen during training
func (m *LogisticModel) Classes() []float64 {
	return append([]float64(nil), m.ClassCodes...)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
