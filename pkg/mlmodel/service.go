package mlmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hs170703/insightfull/pkg/charts"
	"github.com/hs170703/insightfull/pkg/config"
	"github.com/hs170703/insightfull/pkg/dataset"
	"github.com/hs170703/insightfull/pkg/mlmodel/training"
	"github.com/hs170703/insightfull/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// DatasetSource provides parsed datasets by user and file name
type DatasetSource interface {
	Get(username, filename string) (*models.Dataset, error)
}

// ResultSink persists a result under its key and reports whether the
// record was created rather than overwritten
type ResultSink interface {
	UpsertResult(key models.ResultKey, payload []byte) (bool, error)
}

// ChartRenderer draws the diagnostic chart set
type ChartRenderer interface {
	Render(in charts.Input) models.Charts
}

// Service runs the task-inference, training and evaluation pipeline
type Service struct {
	datasets             DatasetSource
	sink                 ResultSink
	classifier           *TaskTypeClassifier
	trainers             *training.TrainerFactory
	charts               ChartRenderer
	recommendationEngine *RecommendationEngine
	settings             *config.PipelineSettings
	logger               *slog.Logger
}

// NewService creates a new pipeline service. A nil settings value uses the
// defaults; a nil logger uses slog.Default().
func NewService(
	datasets DatasetSource,
	sink ResultSink,
	settings *config.PipelineSettings,
	logger *slog.Logger,
) *Service {
	if settings == nil {
		settings = config.DefaultPipelineSettings()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		datasets:   datasets,
		sink:       sink,
		classifier: NewTaskTypeClassifier(settings.ContinuousKeywords),
		trainers: training.NewTrainerFactory(training.Options{
			LogisticC:             settings.LogisticC,
			LogisticMaxIterations: settings.LogisticMaxIterations,
		}),
		charts: charts.NewRenderer(settings.HistogramBins, logger),
		recommendationEngine: NewRecommendationEngine(
			settings.MinAccuracy,
			settings.MinR2,
			settings.ClassificationHintUnique,
		),
		settings: settings,
		logger:   logger,
	}
}

// WithChartRenderer replaces the chart renderer
func (s *Service) WithChartRenderer(r ChartRenderer) *Service {
	s.charts = r
	return s
}

// Predict trains and evaluates the requested model on the user's dataset
// and stores the result. Every failure is returned as a *models.PipelineError.
func (s *Service) Predict(username string, req *models.PredictionRequest) (result *models.TrainingResult, err error) {
	if req == nil {
		return nil, models.NewValidationError(models.CodeInvalidRequest, "request is required")
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = models.NewInternalError(fmt.Errorf("%v", r))
		}
		if err != nil {
			if _, ok := models.AsPipelineError(err); !ok {
				err = models.NewInternalError(err)
			}
			pe, _ := models.AsPipelineError(err)
			level := slog.LevelInfo
			if !pe.IsValidation() {
				level = slog.LevelError
			}
			s.logger.Log(context.Background(), level, "prediction failed",
				"username", username,
				"filename", req.Filename,
				"target_column", req.TargetColumn,
				"model_type", req.ModelType,
				"error_code", pe.Code,
				"error", pe.Message,
			)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, models.NewValidationError(models.CodeInvalidRequest, "%s", err.Error())
	}

	ds, err := s.loadDataset(username, req.Filename)
	if err != nil {
		return nil, err
	}
	return s.Run(username, ds, req)
}

// loadDataset maps user-correctable lookup failures to validation errors
func (s *Service) loadDataset(username, filename string) (*models.Dataset, error) {
	ds, err := s.datasets.Get(username, filename)
	switch {
	case err == nil:
		return ds, nil
	case errors.Is(err, dataset.ErrFileNotFound):
		return nil, models.NewValidationError(models.CodeDatasetNotFound, "File not found. Please upload the file first.")
	case errors.Is(err, dataset.ErrNotCSV):
		return nil, models.NewValidationError(models.CodeInvalidRequest, "%s", dataset.ErrNotCSV.Error())
	case errors.Is(err, dataset.ErrInvalidName):
		return nil, models.NewValidationError(models.CodeInvalidRequest, "Invalid filename: %s", filename)
	default:
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
}

// TargetAnalysis is the task type inferred for a target column without
// training anything
type TargetAnalysis struct {
	TargetColumn string          `json:"target_column"`
	Dtype        string          `json:"dtype"`
	UniqueValues int             `json:"unique_values"`
	TotalSamples int             `json:"total_samples"`
	TaskType     models.TaskType `json:"task_type"`
	Rule         string          `json:"rule"`
	Note         string          `json:"note,omitempty"`
}

// AnalyzeTarget reports the task type the pipeline would infer for a column
func (s *Service) AnalyzeTarget(username, filename, targetColumn string) (*TargetAnalysis, error) {
	ds, err := s.loadDataset(username, filename)
	if err != nil {
		if _, ok := models.AsPipelineError(err); ok {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	col, ok := ds.Column(targetColumn)
	if !ok {
		return nil, models.NewValidationError(models.CodeTargetNotFound,
			"Target column '%s' not found in the dataset.", targetColumn)
	}
	profile := ProfileColumn(col)
	decision := s.classifier.Classify(profile)
	return &TargetAnalysis{
		TargetColumn: profile.Name,
		Dtype:        string(profile.Kind),
		UniqueValues: profile.Unique,
		TotalSamples: profile.Rows,
		TaskType:     decision.TaskType,
		Rule:         decision.Rule,
		Note:         decision.Note,
	}, nil
}

// Run executes the pipeline on an already loaded dataset
func (s *Service) Run(username string, ds *models.Dataset, req *models.PredictionRequest) (*models.TrainingResult, error) {
	targetCol, ok := ds.Column(req.TargetColumn)
	if !ok {
		return nil, models.NewValidationError(models.CodeTargetNotFound,
			"Target column '%s' not found in the dataset.", req.TargetColumn)
	}

	profile := ProfileColumn(targetCol)
	decision := s.classifier.Classify(profile)
	s.logger.Info("target analysis",
		"target_column", profile.Name,
		"dtype", profile.Kind,
		"unique_values", profile.Unique,
		"total_samples", profile.Rows,
		"task_type", decision.TaskType,
		"rule", decision.Rule,
		"note", decision.Note,
	)
	target := models.TargetSpec{Column: req.TargetColumn, TaskType: decision.TaskType}

	prepared, err := PrepareData(ds, target)
	if err != nil {
		return nil, err
	}
	if target.TaskType.IsClassification() {
		s.logger.Info("classification detected",
			"classes", prepared.Classes,
			"samples_per_class", prepared.ClassCounts,
		)
	}

	plan := PlanSplit(len(prepared.Target), target.TaskType, prepared.ClassCounts, s.settings.RandomSeed)
	split, err := SplitData(prepared, plan)
	if err != nil {
		return nil, err
	}
	if target.TaskType.IsClassification() && !plan.Stratified {
		s.logger.Warn("using regular split instead of stratified split due to insufficient samples per class",
			"test_fraction", plan.TestFraction)
	} else {
		s.logger.Info("data split", "test_fraction", plan.TestFraction, "stratified", plan.Stratified,
			"train_rows", len(split.TrainTarget), "test_rows", len(split.TestTarget))
	}

	trainMean, trainStd := stat.MeanStdDev(split.TrainTarget, nil)
	s.logger.Debug("training target statistics",
		"rows", len(split.TrainTarget),
		"features", len(prepared.FeatureNames),
		"mean", trainMean,
		"std", trainStd,
	)
	if err := training.ValidateTarget(split.TrainTarget); err != nil {
		return nil, err
	}

	trainer, err := s.trainers.GetTrainer(req.ModelType)
	if err != nil {
		return nil, err
	}
	trained, err := trainer.Train(&training.TrainingData{
		TrainFeatures: split.TrainFeatures,
		TrainLabels:   split.TrainTarget,
		TestFeatures:  split.TestFeatures,
		TestLabels:    split.TestTarget,
		FeatureNames:  prepared.FeatureNames,
		TaskType:      target.TaskType,
	})
	if err != nil {
		return nil, err
	}

	var metrics models.Metrics
	if target.TaskType.IsClassification() {
		metrics.ClassificationMetrics = EvaluateClassification(split.TestTarget, trained.Predictions)
		s.logger.Info("classification evaluated",
			"model_type", req.ModelType,
			"accuracy", metrics.ClassificationMetrics.Accuracy,
		)
	} else {
		metrics.RegressionMetrics = EvaluateRegression(split.TrainTarget, split.TestTarget, trained.Predictions)
		reg := metrics.RegressionMetrics
		if len(split.TestTarget) < 2 {
			s.logger.Warn("R² is not defined for fewer than two test samples; reporting 0", "test_rows", len(split.TestTarget))
		}
		if reg.R2Score < 0 {
			s.logger.Warn("negative R² indicates very poor model fit",
				"r2_score", reg.R2Score,
				"baseline_mse", reg.BaselineMSE,
				"model_mse", reg.MeanSquaredError,
				"worse_than_baseline", reg.MeanSquaredError > reg.BaselineMSE,
			)
		}
	}

	result := &models.TrainingResult{
		TargetColumn:      req.TargetColumn,
		FeatureColumns:    prepared.FeatureNames,
		ModelType:         req.ModelType,
		TaskType:          target.TaskType,
		IsClassification:  target.TaskType.IsClassification(),
		Metrics:           metrics,
		FeatureImportance: FeatureImportance(prepared.FeatureNames, trained.Model),
		SamplePredictions: models.SamplePredictions{
			Actual:    head(split.TestTarget, s.settings.SamplePredictionLimit),
			Predicted: head(trained.Predictions, s.settings.SamplePredictionLimit),
		},
		Charts: s.charts.Render(charts.Input{
			Dataset:        ds,
			TargetColumn:   req.TargetColumn,
			FeatureColumns: prepared.FeatureNames,
			TaskType:       target.TaskType,
			Actual:         split.TestTarget,
			Predicted:      trained.Predictions,
		}),
		Recommendations: s.recommendationEngine.Recommend(metrics, uniqueCount(split.TrainTarget)),
	}
	if target.TaskType.IsClassification() {
		result.TargetClasses = prepared.Classes
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	key := models.ResultKey{
		Username:     username,
		Filename:     req.Filename,
		ModelType:    req.ModelType,
		TargetColumn: req.TargetColumn,
	}
	created, err := s.sink.UpsertResult(key, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	result.IsNewResult = created
	if created {
		s.logger.Info("created new result", "username", username, "filename", req.Filename,
			"model_type", req.ModelType, "target_column", req.TargetColumn)
	} else {
		s.logger.Info("updated existing result", "username", username, "filename", req.Filename,
			"model_type", req.ModelType, "target_column", req.TargetColumn)
	}

	return result, nil
}

// head returns a copy of at most n leading values
func head(values []float64, n int) []float64 {
	if len(values) < n {
		n = len(values)
	}
	return append([]float64{}, values[:n]...)
}

func uniqueCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
