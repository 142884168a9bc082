package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ModelType represents the type of ML model
type ModelType string

const (
	ModelTypeLinearRegression   ModelType = "linear_regression"
	ModelTypeLogisticRegression ModelType = "logistic_regression"
	ModelTypeNaiveBayes         ModelType = "naive_bayes"
)

// DefaultModelType is used when a request leaves model_type empty
const DefaultModelType = ModelTypeLinearRegression

// TaskType is resolved once per request and trusted by every later stage
type TaskType string

const (
	TaskTypeClassification TaskType = "classification"
	TaskTypeRegression     TaskType = "regression"
)

// IsClassification reports whether the task is classification
func (t TaskType) IsClassification() bool {
	return t == TaskTypeClassification
}

// TaskType returns the only task type the model supports
func (m ModelType) TaskType() (TaskType, bool) {
	switch m {
	case ModelTypeLinearRegression:
		return TaskTypeRegression, true
	case ModelTypeLogisticRegression, ModelTypeNaiveBayes:
		return TaskTypeClassification, true
	default:
		return "", false
	}
}

// DisplayName returns the human-readable model name
func (m ModelType) DisplayName() string {
	switch m {
	case ModelTypeLinearRegression:
		return "Linear Regression"
	case ModelTypeLogisticRegression:
		return "Logistic Regression"
	case ModelTypeNaiveBayes:
		return "Naive Bayes"
	default:
		return string(m)
	}
}

// TargetSpec is the chosen target column plus its resolved task type
type TargetSpec struct {
	Column   string   `json:"column"`
	TaskType TaskType `json:"task_type"`
}

// PredictionRequest represents a request to train and evaluate a model
type PredictionRequest struct {
	Filename     string    `json:"filename"`
	TargetColumn string    `json:"target_column"`
	ModelType    ModelType `json:"model_type"`
}

// Validate checks if the PredictionRequest is valid and fills defaults
func (r *PredictionRequest) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("filename is required")
	}
	if r.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}
	if r.ModelType == "" {
		r.ModelType = DefaultModelType
	}
	return nil
}

// SplitPlan describes how the dataset is partitioned
type SplitPlan struct {
	TestFraction float64 `json:"test_fraction"`
	Stratified   bool    `json:"stratified"`
	Seed         int64   `json:"seed"`
}

// Split holds the train and test partitions of a feature matrix and target
type Split struct {
	TrainFeatures [][]float64
	TestFeatures  [][]float64
	TrainTarget   []float64
	TestTarget    []float64
	TrainIndices  []int
	TestIndices   []int
	Plan          SplitPlan
}

// Metrics holds task-specific metrics. Exactly one of the embedded pointers
// is set, so the JSON object carries only the relevant keys.
type Metrics struct {
	*RegressionMetrics
	*ClassificationMetrics
}

// RegressionMetrics holds regression metrics
type RegressionMetrics struct {
	MeanSquaredError float64 `json:"mean_squared_error"`
	R2Score          float64 `json:"r2_score"`
	RMSE             float64 `json:"rmse"`
	// BaselineMSE is the MSE of always predicting the training mean
	BaselineMSE float64 `json:"-"`
}

// ClassificationMetrics holds classification metrics
type ClassificationMetrics struct {
	Accuracy float64               `json:"accuracy"`
	Report   *ClassificationReport `json:"classification_report"`
}

// ClassScores holds per-label precision/recall/F1/support
type ClassScores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ClassificationReport is a per-class breakdown plus aggregates
type ClassificationReport struct {
	Labels      []string
	PerClass    map[string]ClassScores
	Accuracy    float64
	MacroAvg    ClassScores
	WeightedAvg ClassScores
}

// MarshalJSON flattens the report into a single object keyed by label, with
// "accuracy", "macro avg" and "weighted avg" entries alongside
func (r *ClassificationReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.PerClass)+3)
	for label, scores := range r.PerClass {
		out[label] = scores
	}
	out["accuracy"] = r.Accuracy
	out["macro avg"] = r.MacroAvg
	out["weighted avg"] = r.WeightedAvg
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON
func (r *ClassificationReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.PerClass = make(map[string]ClassScores)
	r.Labels = nil
	for key, value := range raw {
		var err error
		switch key {
		case "accuracy":
			err = json.Unmarshal(value, &r.Accuracy)
		case "macro avg":
			err = json.Unmarshal(value, &r.MacroAvg)
		case "weighted avg":
			err = json.Unmarshal(value, &r.WeightedAvg)
		default:
			var scores ClassScores
			err = json.Unmarshal(value, &scores)
			r.PerClass[key] = scores
			r.Labels = append(r.Labels, key)
		}
		if err != nil {
			return fmt.Errorf("classification report key %q: %w", key, err)
		}
	}
	sort.Strings(r.Labels)
	return nil
}

// SamplePredictions holds the first few actual/predicted pairs
type SamplePredictions struct {
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

// Charts maps chart names to data URIs, or holds a single "error" entry
type Charts map[string]string

const (
	ChartCorrelationHeatmap = "correlation_heatmap"
	ChartActualVsPredicted  = "actual_vs_predicted"
	ChartTargetDistribution = "target_distribution"
	ChartError              = "error"
)

// TrainingResult is the immutable outcome of one pipeline run
type TrainingResult struct {
	TargetColumn      string             `json:"target_column"`
	FeatureColumns    []string           `json:"feature_columns"`
	ModelType         ModelType          `json:"model_type"`
	TaskType          TaskType           `json:"task_type"`
	IsClassification  bool               `json:"is_classification"`
	Metrics           Metrics            `json:"metrics"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	SamplePredictions SamplePredictions  `json:"sample_predictions"`
	Charts            Charts             `json:"charts"`
	Recommendations   []string           `json:"recommendations"`
	TargetClasses     []string           `json:"target_classes,omitempty"`
	IsNewResult       bool               `json:"is_new_result"`
}
