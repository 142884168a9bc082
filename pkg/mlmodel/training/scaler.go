package training

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler rescales features to zero mean and unit variance using
// statistics of the data it was fit on
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates an unfitted scaler
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and population standard deviation. A column
// with zero deviation is scaled by 1.
func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("cannot fit scaler on empty data")
	}
	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			if len(row) != cols {
				return fmt.Errorf("row %d has %d features, expected %d", i, len(row), cols)
			}
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return nil
}

// Transform applies the fitted transform and returns a dense matrix
func (s *StandardScaler) Transform(rows [][]float64) (*mat.Dense, error) {
	if s.Mean == nil {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot transform empty data")
	}
	cols := len(s.Mean)
	out := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), cols)
		}
		for j, v := range row {
			out.Set(i, j, (v-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}
