package charts

import (
	"encoding/base64"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, uri string) {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), "unexpected prefix: %.40s", uri)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Greater(t, len(raw), len(pngMagic))
	assert.Equal(t, pngMagic, raw[:len(pngMagic)])
}

func regressionInput(t *testing.T) Input {
	t.Helper()
	ds, err := models.NewDataset("sales.csv",
		models.NewNumericColumn("Spend", []float64{1, 2, 3, 4, 5, 6}),
		models.NewNumericColumn("Sales", []float64{10, 21, 29, 41, 52, 60}),
	)
	require.NoError(t, err)
	return Input{
		Dataset:        ds,
		TargetColumn:   "Sales",
		FeatureColumns: []string{"Spend"},
		TaskType:       models.TaskTypeRegression,
		Actual:         []float64{21, 52},
		Predicted:      []float64{20, 50},
	}
}

func TestRenderRegression(t *testing.T) {
	charts := NewRenderer(20, nil).Render(regressionInput(t))

	require.NotContains(t, charts, models.ChartError)
	require.Len(t, charts, 3)
	assertPNG(t, charts[models.ChartCorrelationHeatmap])
	assertPNG(t, charts[models.ChartActualVsPredicted])
	assertPNG(t, charts[models.ChartTargetDistribution])
}

func TestRenderConcurrentCallsShareRenderer(t *testing.T) {
	renderer := NewRenderer(20, nil)
	in := regressionInput(t)

	const workers = 8
	results := make([]models.Charts, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = renderer.Render(in)
		}(i)
	}
	wg.Wait()

	for i, charts := range results {
		require.NotContains(t, charts, models.ChartError, "worker %d", i)
		require.Len(t, charts, 3, "worker %d", i)
		assertPNG(t, charts[models.ChartCorrelationHeatmap])
		assertPNG(t, charts[models.ChartActualVsPredicted])
		assertPNG(t, charts[models.ChartTargetDistribution])
	}
}

func TestRenderClassificationWithoutHeatmap(t *testing.T) {
	ds, err := models.NewDataset("months.csv",
		models.NewNumericColumn("Spend", []float64{1, 2, 3, 4}),
		models.NewTextColumn("Month", []string{"Jan", "Feb", "Jan ", "Mar"}),
	)
	require.NoError(t, err)

	charts := NewRenderer(20, nil).Render(Input{
		Dataset:        ds,
		TargetColumn:   "Month",
		FeatureColumns: []string{"Spend"},
		TaskType:       models.TaskTypeClassification,
		Actual:         []float64{0, 1},
		Predicted:      []float64{0, 0},
	})

	require.NotContains(t, charts, models.ChartError)
	// only one numeric column, so no heatmap
	assert.NotContains(t, charts, models.ChartCorrelationHeatmap)
	assertPNG(t, charts[models.ChartActualVsPredicted])
	assertPNG(t, charts[models.ChartTargetDistribution])
}

func TestRenderFailureReplacesAllCharts(t *testing.T) {
	in := regressionInput(t)
	in.Predicted = []float64{1}

	charts := NewRenderer(20, nil).Render(in)
	require.Len(t, charts, 1)
	assert.True(t, strings.HasPrefix(charts[models.ChartError], "Chart generation failed: "))

	in = regressionInput(t)
	in.TargetColumn = "Missing"
	charts = NewRenderer(20, nil).Render(in)
	require.Len(t, charts, 1)
	assert.Contains(t, charts, models.ChartError)
}

func TestCorrelationMatrix(t *testing.T) {
	cols := []*models.Column{
		models.NewNumericColumn("a", []float64{1, 2, 3, 4}),
		models.NewNumericColumn("b", []float64{2, 4, 6, 8}),
		models.NewNumericColumn("c", []float64{4, 3, 2, 1}),
		models.NewNumericColumn("k", []float64{5, 5, 5, 5}),
	}
	corr := CorrelationMatrix(cols)

	assert.InDelta(t, 1, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1, corr.At(0, 2), 1e-12)
	assert.Equal(t, corr.At(1, 2), corr.At(2, 1))
	assert.True(t, math.IsNaN(corr.At(0, 3)))
	assert.True(t, math.IsNaN(corr.At(3, 3)))
	assert.Equal(t, "nan", formatCorrelation(corr.At(3, 3)))
	assert.Equal(t, "-1.00", formatCorrelation(corr.At(0, 2)))
}
