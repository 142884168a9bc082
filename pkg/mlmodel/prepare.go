package mlmodel

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hs170703/insightfull/pkg/models"
)

// strictClassLimit is the class count above which every class needs at
// least two samples
const strictClassLimit = 5

// PreparedData is the feature matrix and encoded target derived from a
// dataset. The dataset itself is left untouched.
type PreparedData struct {
	FeatureNames []string
	Features     [][]float64 // rows x features
	Target       []float64   // raw values for regression, codes 0..k-1 for classification
	Classes      []string    // sorted labels, classification only
	ClassCounts  []int       // samples per code, classification only
}

// Decode maps a class code back to its label
func (p *PreparedData) Decode(code float64) (string, bool) {
	i := int(code)
	if float64(i) != code || i < 0 || i >= len(p.Classes) {
		return "", false
	}
	return p.Classes[i], true
}

// PrepareData selects numeric features, cleans and encodes the target and
// checks that the data can be trained on
func PrepareData(ds *models.Dataset, target models.TargetSpec) (*PreparedData, error) {
	targetCol, ok := ds.Column(target.Column)
	if !ok {
		return nil, models.NewValidationError(models.CodeTargetNotFound,
			"Target column '%s' not found in the dataset.", target.Column)
	}

	prepared := &PreparedData{}
	var featureCols []*models.Column
	for _, col := range ds.NumericColumns() {
		if col.Name == target.Column {
			continue
		}
		featureCols = append(featureCols, col)
		prepared.FeatureNames = append(prepared.FeatureNames, col.Name)
	}
	if len(featureCols) == 0 {
		return nil, models.NewValidationError(models.CodeNoNumericFeatures,
			"No numeric columns found for features. Need at least one numeric column besides target.")
	}

	n := ds.Rows()
	prepared.Features = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(featureCols))
		for j, col := range featureCols {
			v := col.Numeric[i]
			if math.IsNaN(v) {
				return nil, models.NewValidationError(models.CodeMissingValues,
					"Feature column '%s' has missing values. Please clean the dataset first.", col.Name)
			}
			row[j] = v
		}
		prepared.Features[i] = row
	}

	if target.TaskType.IsClassification() {
		if err := prepared.encodeTarget(targetCol); err != nil {
			return nil, err
		}
		return prepared, nil
	}

	if !targetCol.IsNumeric() {
		return nil, models.NewValidationError(models.CodeWrongModelForTask,
			"Target column '%s' is not numeric and cannot be used for regression.", target.Column)
	}
	prepared.Target = make([]float64, n)
	for i, v := range targetCol.Numeric {
		if math.IsNaN(v) {
			return nil, models.NewValidationError(models.CodeMissingValues,
				"Target column '%s' has missing values. Please clean the dataset first.", target.Column)
		}
		prepared.Target[i] = v
	}
	if targetCol.UniqueCount() < 2 {
		return nil, models.NewValidationError(models.CodeConstantTarget,
			"Target variable has no variance (all values are the same). Cannot perform regression.")
	}
	return prepared, nil
}

// encodeTarget label-encodes the target in sorted label order. Text labels
// are trimmed first; numeric labels sort numerically.
func (p *PreparedData) encodeTarget(col *models.Column) error {
	labels := make([]string, col.Len())
	if col.IsNumeric() {
		for i, v := range col.Numeric {
			if math.IsNaN(v) {
				return models.NewValidationError(models.CodeMissingValues,
					"Target column '%s' has missing values. Please clean the dataset first.", col.Name)
			}
			labels[i] = models.FormatNumber(v)
		}
	} else {
		for i, v := range col.Text {
			labels[i] = strings.TrimSpace(v)
			if labels[i] == "" {
				return models.NewValidationError(models.CodeMissingValues,
					"Target column '%s' has missing values. Please clean the dataset first.", col.Name)
			}
		}
	}

	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}
	classes := make([]string, 0, len(counts))
	for label := range counts {
		classes = append(classes, label)
	}
	if col.IsNumeric() {
		sort.Slice(classes, func(i, j int) bool {
			a, _ := strconv.ParseFloat(classes[i], 64)
			b, _ := strconv.ParseFloat(classes[j], 64)
			return a < b
		})
	} else {
		sort.Strings(classes)
	}

	codes := make(map[string]int, len(classes))
	p.ClassCounts = make([]int, len(classes))
	minCount := math.MaxInt
	for i, label := range classes {
		codes[label] = i
		p.ClassCounts[i] = counts[label]
		minCount = min(minCount, counts[label])
	}
	if len(classes) == 0 {
		minCount = 0
	}
	if minCount < 2 && len(classes) > strictClassLimit {
		return models.NewValidationError(models.CodeInsufficientClassSamples,
			"Not enough samples per class for classification. Minimum samples needed: 2, got: %d", minCount)
	}
	if minCount < 1 {
		return models.NewValidationError(models.CodeInsufficientClassSamples,
			"Not enough samples per class for classification. Minimum samples needed: 1, got: %d", minCount)
	}

	p.Classes = classes
	p.Target = make([]float64, len(labels))
	for i, label := range labels {
		p.Target[i] = float64(codes[label])
	}
	return nil
}
