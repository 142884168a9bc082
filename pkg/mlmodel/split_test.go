package mlmodel

import (
	"sort"
	"testing"

	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestFraction(t *testing.T) {
	tests := []struct {
		n        int
		expected float64
	}{
		{n: 2, expected: 0.5},
		{n: 5, expected: 0.2},
		{n: 9, expected: 1.0 / 9},
		{n: 10, expected: 0.2},
		{n: 1000, expected: 0.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, TestFraction(tt.n), 1e-12, "n=%d", tt.n)
	}
	assert.Equal(t, 1, testSize(9, TestFraction(9)))
	assert.Equal(t, 20, testSize(100, TestFraction(100)))
}

func TestPlanSplit(t *testing.T) {
	regression := PlanSplit(50, models.TaskTypeRegression, nil, 7)
	assert.False(t, regression.Stratified)
	assert.Equal(t, int64(7), regression.Seed)
	assert.Equal(t, 0.2, regression.TestFraction)

	// every class has two samples and the test side can hold one of each
	assert.True(t, PlanSplit(20, models.TaskTypeClassification, []int{10, 6, 4}, DefaultSeed).Stratified)
	// a singleton class
	assert.False(t, PlanSplit(5, models.TaskTypeClassification, []int{2, 2, 1}, DefaultSeed).Stratified)
	// more classes than test rows
	assert.False(t, PlanSplit(24, models.TaskTypeClassification, []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, DefaultSeed).Stratified)
}

func preparedFromTarget(target []float64) *PreparedData {
	features := make([][]float64, len(target))
	for i := range target {
		features[i] = []float64{float64(i)}
	}
	return &PreparedData{FeatureNames: []string{"row"}, Features: features, Target: target}
}

func TestSplitDataFiveRowsFallsBackToUnstratified(t *testing.T) {
	prepared := preparedFromTarget([]float64{0, 0, 1, 1, 2})
	plan := PlanSplit(5, models.TaskTypeClassification, []int{2, 2, 1}, DefaultSeed)
	require.False(t, plan.Stratified)

	split, err := SplitData(prepared, plan)
	require.NoError(t, err)
	assert.Len(t, split.TestTarget, 1)
	assert.Len(t, split.TrainTarget, 4)
	assertPartition(t, 5, split)
}

func TestSplitDataStratifiedKeepsEveryClassOnBothSides(t *testing.T) {
	target := make([]float64, 0, 30)
	for i := 0; i < 18; i++ {
		target = append(target, 0)
	}
	for i := 0; i < 9; i++ {
		target = append(target, 1)
	}
	target = append(target, 2, 2, 2)
	prepared := preparedFromTarget(target)

	plan := PlanSplit(len(target), models.TaskTypeClassification, []int{18, 9, 3}, DefaultSeed)
	require.True(t, plan.Stratified)
	split, err := SplitData(prepared, plan)
	require.NoError(t, err)
	assertPartition(t, len(target), split)
	assert.Len(t, split.TestTarget, 6)

	testCounts := make(map[float64]int)
	for _, v := range split.TestTarget {
		testCounts[v]++
	}
	trainCounts := make(map[float64]int)
	for _, v := range split.TrainTarget {
		trainCounts[v]++
	}
	for _, class := range []float64{0, 1, 2} {
		assert.GreaterOrEqual(t, testCounts[class], 1, "class %v in test", class)
		assert.GreaterOrEqual(t, trainCounts[class], 1, "class %v in train", class)
	}
	assert.Equal(t, map[float64]int{0: 3, 1: 2, 2: 1}, testCounts)
}

func TestSplitDataDeterministic(t *testing.T) {
	prepared := preparedFromTarget([]float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8})
	plan := PlanSplit(12, models.TaskTypeRegression, nil, DefaultSeed)

	first, err := SplitData(prepared, plan)
	require.NoError(t, err)
	second, err := SplitData(prepared, plan)
	require.NoError(t, err)
	assert.Equal(t, first.TrainIndices, second.TrainIndices)
	assert.Equal(t, first.TestIndices, second.TestIndices)

	other, err := SplitData(prepared, PlanSplit(12, models.TaskTypeRegression, nil, 7))
	require.NoError(t, err)
	assertPartition(t, 12, other)
}

func TestSplitDataInsufficientRows(t *testing.T) {
	_, err := SplitData(preparedFromTarget([]float64{1}), PlanSplit(1, models.TaskTypeRegression, nil, DefaultSeed))
	assert.True(t, models.HasCode(err, models.CodeInsufficientRows))

	_, err = SplitData(preparedFromTarget(nil), PlanSplit(0, models.TaskTypeRegression, nil, DefaultSeed))
	assert.True(t, models.HasCode(err, models.CodeInsufficientRows))
}

func TestAllocateTest(t *testing.T) {
	// floors 3,1,0 clamp to 3,1,1; the largest remainder takes the last row
	alloc, err := allocateTest([]int{18, 9, 3}, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, alloc)

	alloc, err = allocateTest([]int{2, 2, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, alloc)

	_, err = allocateTest([]int{2, 2}, 3)
	assert.Error(t, err)
}

// assertPartition checks that train and test indices cover 0..n-1 exactly once
func assertPartition(t *testing.T, n int, split *models.Split) {
	t.Helper()
	all := append(append([]int{}, split.TrainIndices...), split.TestIndices...)
	sort.Ints(all)
	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, all)
	assert.Len(t, split.TrainFeatures, len(split.TrainTarget))
	assert.Len(t, split.TestFeatures, len(split.TestTarget))
	for i, row := range split.TrainIndices {
		assert.Equal(t, float64(row), split.TrainFeatures[i][0])
	}
}
