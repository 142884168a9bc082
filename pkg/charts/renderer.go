package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/hs170703/insightfull/pkg/models"
)

const dataURIPrefix = "data:image/png;base64,"

var (
	actualColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictedColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	referenceColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Input is everything needed to draw the diagnostic charts
type Input struct {
	Dataset        *models.Dataset
	TargetColumn   string
	FeatureColumns []string
	TaskType       models.TaskType
	Actual         []float64
	Predicted      []float64
}

// Renderer draws diagnostic charts as PNG data URIs. Every chart gets its
// own canvas; the mutex serialises rendering because the plotting library
// shares its font cache process-wide.
type Renderer struct {
	mu     sync.Mutex
	width  vg.Length
	height vg.Length
	bins   int
	logger *slog.Logger
}

// NewRenderer creates a renderer drawing histograms with the given bin count
func NewRenderer(bins int, logger *slog.Logger) *Renderer {
	if bins <= 0 {
		bins = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		width:  8 * vg.Inch,
		height: 6 * vg.Inch,
		bins:   bins,
		logger: logger,
	}
}

// Render draws the correlation heatmap (when at least two numeric columns
// exist), actual-vs-predicted and target distribution charts. Any failure
// discards the whole set and returns a single error entry instead.
func (r *Renderer) Render(in Input) (charts models.Charts) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			charts = chartError(fmt.Errorf("%v", rec))
			r.logger.Error("chart rendering panicked", "error", rec)
		}
	}()

	charts, err := r.render(in)
	if err != nil {
		r.logger.Warn("chart rendering failed", "error", err)
		return chartError(err)
	}
	return charts
}

func chartError(err error) models.Charts {
	return models.Charts{models.ChartError: fmt.Sprintf("Chart generation failed: %s", err)}
}

func (r *Renderer) render(in Input) (models.Charts, error) {
	if in.Dataset == nil {
		return nil, fmt.Errorf("no dataset to chart")
	}
	target, ok := in.Dataset.Column(in.TargetColumn)
	if !ok {
		return nil, fmt.Errorf("target column '%s' not found", in.TargetColumn)
	}
	if len(in.Actual) != len(in.Predicted) {
		return nil, fmt.Errorf("actual and predicted lengths differ: %d vs %d", len(in.Actual), len(in.Predicted))
	}

	charts := models.Charts{}

	numeric := numericColumns(in.Dataset, append(append([]string(nil), in.FeatureColumns...), in.TargetColumn))
	if len(numeric) > 1 {
		p, err := correlationHeatmap(numeric)
		if err != nil {
			return nil, err
		}
		uri, err := r.encode(p, 10*vg.Inch, 8*vg.Inch)
		if err != nil {
			return nil, err
		}
		charts[models.ChartCorrelationHeatmap] = uri
	}

	var scatter *plot.Plot
	var err error
	if in.TaskType.IsClassification() {
		scatter, err = classScatter(in.Actual, in.Predicted)
	} else {
		scatter, err = regressionScatter(in.Actual, in.Predicted)
	}
	if err != nil {
		return nil, err
	}
	uri, err := r.encode(scatter, r.width, r.height)
	if err != nil {
		return nil, err
	}
	charts[models.ChartActualVsPredicted] = uri

	var dist *plot.Plot
	if in.TaskType.IsClassification() {
		dist, err = valueCountsBar(target)
	} else {
		dist, err = histogram(target, r.bins)
	}
	if err != nil {
		return nil, err
	}
	uri, err = r.encode(dist, r.width, r.height)
	if err != nil {
		return nil, err
	}
	charts[models.ChartTargetDistribution] = uri

	return charts, nil
}

// encode renders the plot to PNG and wraps it in a data URI
func (r *Renderer) encode(p *plot.Plot, width, height vg.Length) (string, error) {
	w, err := p.WriterTo(width, height, "png")
	if err != nil {
		return "", fmt.Errorf("failed to create PNG canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func numericColumns(ds *models.Dataset, names []string) []*models.Column {
	var cols []*models.Column
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if col, ok := ds.Column(name); ok && col.IsNumeric() {
			cols = append(cols, col)
		}
	}
	return cols
}

func classScatter(actual, predicted []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Actual vs Predicted Classes"
	p.X.Label.Text = "Sample Index"
	p.Y.Label.Text = "Class"

	actualPts := make(plotter.XYs, len(actual))
	predictedPts := make(plotter.XYs, len(predicted))
	for i := range actual {
		actualPts[i] = plotter.XY{X: float64(i), Y: actual[i]}
		predictedPts[i] = plotter.XY{X: float64(i), Y: predicted[i]}
	}

	a, err := plotter.NewScatter(actualPts)
	if err != nil {
		return nil, err
	}
	a.GlyphStyle.Color = actualColor
	a.GlyphStyle.Shape = draw.CircleGlyph{}
	a.GlyphStyle.Radius = vg.Points(4)

	pr, err := plotter.NewScatter(predictedPts)
	if err != nil {
		return nil, err
	}
	pr.GlyphStyle.Color = predictedColor
	pr.GlyphStyle.Shape = draw.CrossGlyph{}
	pr.GlyphStyle.Radius = vg.Points(4)

	p.Add(a, pr)
	p.Legend.Add("Actual", a)
	p.Legend.Add("Predicted", pr)
	p.Legend.Top = true
	return p, nil
}

func regressionScatter(actual, predicted []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Actual vs Predicted Values"
	p.X.Label.Text = "Actual Values"
	p.Y.Label.Text = "Predicted Values"

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i] = plotter.XY{X: actual[i], Y: predicted[i]}
		lo = math.Min(lo, actual[i])
		hi = math.Max(hi, actual[i])
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = actualColor
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)

	// diagonal reference over the actual range
	if len(actual) > 0 {
		line, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = referenceColor
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(line)
	}
	return p, nil
}

func valueCountsBar(col *models.Column) (*plot.Plot, error) {
	counts := col.ValueCounts()
	values := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, vc := range counts {
		values[i] = float64(vc.Count)
		labels[i] = vc.Label
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", col.Name)
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = actualColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p, nil
}

func histogram(col *models.Column, bins int) (*plot.Plot, error) {
	var values plotter.Values
	for _, v := range col.Numeric {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("column '%s' has no values to plot", col.Name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", col.Name)
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = color.RGBA{R: 31, G: 119, B: 180, A: 178}
	h.LineStyle.Color = color.Black
	p.Add(h)
	return p, nil
}
