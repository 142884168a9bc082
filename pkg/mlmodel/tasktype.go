package mlmodel

import (
	"fmt"
	"math"
	"strings"

	"github.com/hs170703/insightfull/pkg/models"
)

// lowCardinalityLimit is the distinct-value count below which a numeric
// target is always considered small
const lowCardinalityLimit = 15

// TargetProfile is what the classifier knows about a target column
type TargetProfile struct {
	Name   string
	Kind   models.ColumnKind
	Unique int
	Rows   int

	// Classes counts distinct trimmed, non-empty labels; zero means Unique
	Classes int
}

// ProfileColumn builds a TargetProfile for a dataset column
func ProfileColumn(col *models.Column) TargetProfile {
	return TargetProfile{
		Name:    col.Name,
		Kind:    col.Kind,
		Unique:  col.UniqueCount(),
		Rows:    col.Len(),
		Classes: labelCount(col),
	}
}

func labelCount(col *models.Column) int {
	if col.IsNumeric() {
		return col.UniqueCount()
	}
	seen := make(map[string]struct{}, len(col.Text))
	for _, v := range col.Text {
		if label := strings.TrimSpace(v); label != "" {
			seen[label] = struct{}{}
		}
	}
	return len(seen)
}

func (p TargetProfile) classes() int {
	if p.Classes > 0 {
		return p.Classes
	}
	return p.Unique
}

// TaskDecision is the outcome of classifying a target
type TaskDecision struct {
	TaskType models.TaskType
	Rule     string // name of the rule that fired, or "fallback"
	Note     string // human-readable hint, diagnostic only
}

// TaskRule is one step of the ordered decision list. A rule either decides
// the task type or defers to the next rule.
type TaskRule interface {
	Name() string
	Apply(profile TargetProfile) (models.TaskType, bool)
}

// CategoricalDtypeRule classifies any text/categorical column
type CategoricalDtypeRule struct{}

func (CategoricalDtypeRule) Name() string { return "categorical_dtype" }

func (CategoricalDtypeRule) Apply(profile TargetProfile) (models.TaskType, bool) {
	if profile.Kind == models.ColumnKindCategorical {
		return models.TaskTypeClassification, true
	}
	return "", false
}

// LowCardinalityRule classifies numeric columns with few distinct values,
// unless the name carries a continuous-signal keyword
type LowCardinalityRule struct {
	Keywords []string
}

func (r LowCardinalityRule) Name() string { return "low_cardinality" }

func (r LowCardinalityRule) Apply(profile TargetProfile) (models.TaskType, bool) {
	if profile.Kind != models.ColumnKindNumeric {
		return "", false
	}
	if !isSmallCardinality(profile.Unique, profile.Rows) {
		return "", false
	}
	if _, ok := matchKeyword(profile.Name, r.Keywords); ok {
		return "", false
	}
	return models.TaskTypeClassification, true
}

func isSmallCardinality(unique, rows int) bool {
	return unique < lowCardinalityLimit ||
		float64(unique) < math.Max(5, 0.25*float64(rows))
}

func matchKeyword(name string, keywords []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// TaskTypeClassifier decides classification vs regression by running an
// ordered rule list and falling back to regression
type TaskTypeClassifier struct {
	rules    []TaskRule
	keywords []string
}

// NewTaskTypeClassifier creates the default classifier with the given
// continuous-signal keywords
func NewTaskTypeClassifier(keywords []string) *TaskTypeClassifier {
	return NewTaskTypeClassifierWithRules(keywords,
		CategoricalDtypeRule{},
		LowCardinalityRule{Keywords: keywords},
	)
}

// NewTaskTypeClassifierWithRules creates a classifier with a custom rule order
func NewTaskTypeClassifierWithRules(keywords []string, rules ...TaskRule) *TaskTypeClassifier {
	return &TaskTypeClassifier{rules: rules, keywords: keywords}
}

// Classify always returns a decision; it never fails
func (c *TaskTypeClassifier) Classify(profile TargetProfile) TaskDecision {
	decision := TaskDecision{TaskType: models.TaskTypeRegression, Rule: "fallback"}
	for _, rule := range c.rules {
		if taskType, ok := rule.Apply(profile); ok {
			decision.TaskType = taskType
			decision.Rule = rule.Name()
			break
		}
	}
	decision.Note = c.note(profile)
	return decision
}

func (c *TaskTypeClassifier) note(profile TargetProfile) string {
	lower := strings.ToLower(profile.Name)
	switch {
	case strings.Contains(lower, "month"):
		return fmt.Sprintf("%s detected as categorical (months)", profile.Name)
	case hasKeyword(profile.Name, c.keywords):
		return fmt.Sprintf("%s detected as continuous variable", profile.Name)
	case profile.classes() < lowCardinalityLimit:
		return fmt.Sprintf("%s has few unique values (%d), consider classification", profile.Name, profile.classes())
	default:
		return fmt.Sprintf("%s has many unique values (%d), consider regression", profile.Name, profile.classes())
	}
}

func hasKeyword(name string, keywords []string) bool {
	_, ok := matchKeyword(name, keywords)
	return ok
}
