package training

import (
	"fmt"
	"sort"

	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/mat"
)

// Trainer interface defines the contract for ML model training
type Trainer interface {
	// Train checks applicability, standardizes features, fits the model and
	// predicts the test partition
	Train(data *TrainingData) (*TrainingResult, error)

	// Validate reports whether the model can be trained on the data
	Validate(data *TrainingData) error

	// GetType returns the model type this trainer handles
	GetType() models.ModelType
}

// Model is a fitted model operating on standardized features
type Model interface {
	Predict(x mat.Matrix) []float64
	// Coefficients returns one row per fitted coefficient vector, or nil
	// when the model has no linear coefficients
	Coefficients() [][]float64
}

// ProbabilisticModel is a fitted classifier that can estimate class
// probabilities. Columns follow Classes().
type ProbabilisticModel interface {
	Model
	PredictProba(x mat.Matrix) [][]float64
	Classes() []float64
}

// TrainingData holds the data for training and validation
type TrainingData struct {
	TrainFeatures [][]float64 // Training features (rows x features)
	TrainLabels   []float64   // Training labels/targets
	TestFeatures  [][]float64 // Test features
	TestLabels    []float64   // Test labels/targets
	FeatureNames  []string    // Names of features
	TaskType      models.TaskType
}

// TrainingResult holds the results of model training
type TrainingResult struct {
	Model         Model
	Scaler        *StandardScaler
	Predictions   []float64   // Point predictions for the test partition
	Probabilities [][]float64 // Class probabilities, classification only
}

// Options tunes the trainers
type Options struct {
	LogisticC             float64
	LogisticMaxIterations int
}

// DefaultOptions returns the default trainer options
func DefaultOptions() Options {
	return Options{LogisticC: 1.0, LogisticMaxIterations: 1000}
}

// TrainerFactory creates trainers for different model types
type TrainerFactory struct {
	trainers map[models.ModelType]Trainer
}

// NewTrainerFactory creates a new trainer factory
func NewTrainerFactory(opts Options) *TrainerFactory {
	factory := &TrainerFactory{
		trainers: make(map[models.ModelType]Trainer),
	}

	// Register trainers for each model type
	factory.trainers[models.ModelTypeLinearRegression] = NewLinearRegressionTrainer()
	factory.trainers[models.ModelTypeLogisticRegression] = NewLogisticRegressionTrainer(opts.LogisticC, opts.LogisticMaxIterations)
	factory.trainers[models.ModelTypeNaiveBayes] = NewNaiveBayesTrainer()

	return factory
}

// GetTrainer returns the appropriate trainer for a model type
func (f *TrainerFactory) GetTrainer(modelType models.ModelType) (Trainer, error) {
	trainer, ok := f.trainers[modelType]
	if !ok {
		return nil, models.NewValidationError(models.CodeUnknownModelType, "Unknown model type: %s", modelType)
	}
	return trainer, nil
}

// ValidateTarget rejects a training target with no variance
func ValidateTarget(y []float64) error {
	if len(y) == 0 || distinctCount(y) < 2 {
		return models.NewValidationError(models.CodeConstantTarget,
			"Target variable has no variance (all values are the same). Cannot perform regression.")
	}
	return nil
}

type fitFunc func(x *mat.Dense, y []float64) (Model, error)

// fitAndPredict standardizes on the train partition only, fits, and predicts
// the test partition with the same transform
func fitAndPredict(data *TrainingData, fit fitFunc) (*TrainingResult, error) {
	if len(data.TrainFeatures) == 0 {
		return nil, fmt.Errorf("no training data provided")
	}
	if len(data.TrainFeatures) != len(data.TrainLabels) {
		return nil, fmt.Errorf("training features have %d rows but labels have %d", len(data.TrainFeatures), len(data.TrainLabels))
	}

	scaler := NewStandardScaler()
	if err := scaler.Fit(data.TrainFeatures); err != nil {
		return nil, err
	}
	trainX, err := scaler.Transform(data.TrainFeatures)
	if err != nil {
		return nil, err
	}
	model, err := fit(trainX, data.TrainLabels)
	if err != nil {
		return nil, err
	}

	result := &TrainingResult{Model: model, Scaler: scaler}
	if len(data.TestFeatures) == 0 {
		return result, nil
	}
	testX, err := scaler.Transform(data.TestFeatures)
	if err != nil {
		return nil, err
	}
	result.Predictions = model.Predict(testX)
	if pm, ok := model.(ProbabilisticModel); ok {
		result.Probabilities = pm.PredictProba(testX)
	}
	return result, nil
}

func checkTask(data *TrainingData, want models.TaskType, message string) error {
	if data.TaskType != want {
		return models.NewValidationError(models.CodeWrongModelForTask, "%s", message)
	}
	return nil
}

// sortedClasses returns the distinct label codes in ascending order
func sortedClasses(y []float64) []float64 {
	seen := make(map[float64]struct{}, len(y))
	var classes []float64
	for _, v := range y {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Float64s(classes)
	return classes
}

func distinctCount(y []float64) int {
	return len(sortedClasses(y))
}

func classIndex(classes []float64) map[float64]int {
	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return index
}
