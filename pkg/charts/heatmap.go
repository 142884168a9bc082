package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"github.com/hs170703/insightfull/pkg/models"
)

// CorrelationMatrix returns pairwise Pearson correlations. Pairs involving a
// constant column are NaN.
func CorrelationMatrix(cols []*models.Column) *mat.SymDense {
	n := len(cols)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				if constant(cols[i].Numeric) {
					corr.SetSym(i, j, math.NaN())
				} else {
					corr.SetSym(i, j, 1)
				}
				continue
			}
			corr.SetSym(i, j, pearson(cols[i].Numeric, cols[j].Numeric))
		}
	}
	return corr
}

// pearson correlates the rows where both values are present
func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func constant(values []float64) bool {
	first := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(first) {
			first = v
			continue
		}
		if v != first {
			return false
		}
	}
	return true
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int) {
	n := g.m.SymmetricDim()
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	n := g.m.SymmetricDim()
	return g.m.At(n-1-r, c)
}

func (g corrGrid) X(c int) float64 { return float64(c) }

func (g corrGrid) Y(r int) float64 { return float64(r) }

func correlationHeatmap(cols []*models.Column) (*plot.Plot, error) {
	corr := CorrelationMatrix(cols)
	n := len(cols)

	colors := moreland.SmoothBlueRed()
	colors.SetMin(-1)
	colors.SetMax(1)

	heat := plotter.NewHeatMap(corrGrid{m: corr}, colors.Palette(255))
	heat.Min = -1
	heat.Max = 1
	heat.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"
	p.Add(heat)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	var points plotter.XYs
	var labels []string
	for i, col := range cols {
		xTicks[i] = plot.Tick{Value: float64(i), Label: col.Name}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: col.Name}
		for j := 0; j < n; j++ {
			points = append(points, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			labels = append(labels, formatCorrelation(corr.At(i, j)))
		}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = math.Pi / 4

	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to annotate heatmap: %w", err)
	}
	p.Add(annotations)
	return p, nil
}

func formatCorrelation(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.2f", v)
}
