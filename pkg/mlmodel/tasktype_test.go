package mlmodel

import (
	"testing"

	"github.com/hs170703/insightfull/pkg/config"
	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTaskTypeClassifier(t *testing.T) {
	classifier := NewTaskTypeClassifier(config.DefaultContinuousKeywords)

	tests := []struct {
		name     string
		profile  TargetProfile
		expected models.TaskType
		rule     string
	}{
		{
			name:     "text target with many values",
			profile:  TargetProfile{Name: "Customer", Kind: models.ColumnKindCategorical, Unique: 500, Rows: 500},
			expected: models.TaskTypeClassification,
			rule:     "categorical_dtype",
		},
		{
			name:     "text target named like a continuous signal",
			profile:  TargetProfile{Name: "Sales", Kind: models.ColumnKindCategorical, Unique: 3, Rows: 100},
			expected: models.TaskTypeClassification,
			rule:     "categorical_dtype",
		},
		{
			name:     "Revenue keyword overrides low cardinality",
			profile:  TargetProfile{Name: "Revenue", Kind: models.ColumnKindNumeric, Unique: 8, Rows: 100},
			expected: models.TaskTypeRegression,
			rule:     "fallback",
		},
		{
			name:     "keyword match is case-insensitive substring",
			profile:  TargetProfile{Name: "total_PRICE_usd", Kind: models.ColumnKindNumeric, Unique: 4, Rows: 100},
			expected: models.TaskTypeRegression,
			rule:     "fallback",
		},
		{
			name:     "numeric 1-5 stars",
			profile:  TargetProfile{Name: "Stars", Kind: models.ColumnKindNumeric, Unique: 5, Rows: 200},
			expected: models.TaskTypeClassification,
			rule:     "low_cardinality",
		},
		{
			name:     "many unique numeric values",
			profile:  TargetProfile{Name: "Temperature", Kind: models.ColumnKindNumeric, Unique: 15, Rows: 40},
			expected: models.TaskTypeRegression,
			rule:     "fallback",
		},
		{
			name:     "below a quarter of the rows",
			profile:  TargetProfile{Name: "Bucket", Kind: models.ColumnKindNumeric, Unique: 20, Rows: 100},
			expected: models.TaskTypeClassification,
			rule:     "low_cardinality",
		},
		{
			name:     "at a quarter of the rows",
			profile:  TargetProfile{Name: "Bucket", Kind: models.ColumnKindNumeric, Unique: 25, Rows: 100},
			expected: models.TaskTypeRegression,
			rule:     "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := classifier.Classify(tt.profile)
			assert.Equal(t, tt.expected, decision.TaskType)
			assert.Equal(t, tt.rule, decision.Rule)
			assert.NotEmpty(t, decision.Note)
		})
	}
}

func TestTaskTypeClassifierNumericRegressionAboveLimit(t *testing.T) {
	classifier := NewTaskTypeClassifier(config.DefaultContinuousKeywords)
	for u := 15; u <= 60; u += 5 {
		// u >= 15 and u >= 0.25n
		profile := TargetProfile{Name: "Measurement", Kind: models.ColumnKindNumeric, Unique: u, Rows: u}
		assert.Equal(t, models.TaskTypeRegression, classifier.Classify(profile).TaskType, "u=%d", u)
	}
}

func TestTaskTypeClassifierRatingKeyword(t *testing.T) {
	profile := TargetProfile{Name: "Rating", Kind: models.ColumnKindNumeric, Unique: 5, Rows: 50}

	// "rating" is one of the default continuous keywords
	assert.Equal(t, models.TaskTypeRegression,
		NewTaskTypeClassifier(config.DefaultContinuousKeywords).Classify(profile).TaskType)

	withoutRating := []string{"sales", "revenue", "profit", "amount", "spend", "cost", "price", "value", "score"}
	assert.Equal(t, models.TaskTypeClassification,
		NewTaskTypeClassifier(withoutRating).Classify(profile).TaskType)
}

func TestTaskTypeClassifierNotes(t *testing.T) {
	classifier := NewTaskTypeClassifier(config.DefaultContinuousKeywords)

	tests := []struct {
		profile TargetProfile
		note    string
	}{
		{
			profile: TargetProfile{Name: "Month", Kind: models.ColumnKindCategorical, Unique: 12, Rows: 24},
			note:    "Month detected as categorical (months)",
		},
		{
			profile: TargetProfile{Name: "Sales", Kind: models.ColumnKindNumeric, Unique: 90, Rows: 100},
			note:    "Sales detected as continuous variable",
		},
		{
			profile: TargetProfile{Name: "Grade", Kind: models.ColumnKindNumeric, Unique: 4, Rows: 100},
			note:    "Grade has few unique values (4), consider classification",
		},
		{
			profile: TargetProfile{Name: "Height", Kind: models.ColumnKindNumeric, Unique: 80, Rows: 100},
			note:    "Height has many unique values (80), consider regression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.profile.Name, func(t *testing.T) {
			assert.Equal(t, tt.note, classifier.Classify(tt.profile).Note)
		})
	}
}

type alwaysRegression struct{}

func (alwaysRegression) Name() string { return "always_regression" }

func (alwaysRegression) Apply(TargetProfile) (models.TaskType, bool) {
	return models.TaskTypeRegression, true
}

func TestTaskTypeClassifierCustomRules(t *testing.T) {
	classifier := NewTaskTypeClassifierWithRules(nil, alwaysRegression{}, CategoricalDtypeRule{})
	decision := classifier.Classify(TargetProfile{Name: "Label", Kind: models.ColumnKindCategorical, Unique: 2, Rows: 10})
	assert.Equal(t, models.TaskTypeRegression, decision.TaskType)
	assert.Equal(t, "always_regression", decision.Rule)

	empty := NewTaskTypeClassifierWithRules(nil)
	assert.Equal(t, models.TaskTypeRegression,
		empty.Classify(TargetProfile{Name: "Label", Kind: models.ColumnKindCategorical}).TaskType)
}

func TestProfileColumn(t *testing.T) {
	col := models.NewTextColumn("Month", []string{"Jan", "Feb", "Jan"})
	profile := ProfileColumn(col)
	assert.Equal(t, TargetProfile{Name: "Month", Kind: models.ColumnKindCategorical, Unique: 2, Rows: 3, Classes: 2}, profile)

	numeric := ProfileColumn(models.NewNumericColumn("Grade", []float64{1, 2, 2, 3}))
	assert.Equal(t, 3, numeric.Classes)
}

func TestTaskTypeClassifierNoteCountsTrimmedLabels(t *testing.T) {
	col := models.NewTextColumn("Answer", []string{"Yes", "Yes ", " No", "No", "Maybe", "", "Maybe "})
	profile := ProfileColumn(col)
	assert.Equal(t, 7, profile.Unique)
	assert.Equal(t, 3, profile.Classes)

	decision := NewTaskTypeClassifier(config.DefaultContinuousKeywords).Classify(profile)
	assert.Equal(t, models.TaskTypeClassification, decision.TaskType)
	assert.Equal(t, "Answer has few unique values (3), consider classification", decision.Note)
}
