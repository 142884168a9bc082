package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ColumnKind is the declared dtype category of a dataset column
type ColumnKind string

const (
	ColumnKindNumeric     ColumnKind = "numeric"
	ColumnKindCategorical ColumnKind = "categorical"
)

// Column is a single named, typed column. Exactly one of Numeric or Text is
// populated, depending on Kind. Missing numeric cells are NaN.
type Column struct {
	Name    string     `json:"name"`
	Kind    ColumnKind `json:"kind"`
	Numeric []float64  `json:"numeric,omitempty"`
	Text    []string   `json:"text,omitempty"`
}

// NewNumericColumn creates a numeric column
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: ColumnKindNumeric, Numeric: values}
}

// NewTextColumn creates a text/categorical column
func NewTextColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: ColumnKindCategorical, Text: values}
}

// Len returns the number of cells in the column
func (c *Column) Len() int {
	if c.Kind == ColumnKindNumeric {
		return len(c.Numeric)
	}
	return len(c.Text)
}

// IsNumeric reports whether the column holds numbers
func (c *Column) IsNumeric() bool {
	return c.Kind == ColumnKindNumeric
}

// UniqueCount returns the number of distinct non-missing values
func (c *Column) UniqueCount() int {
	if c.IsNumeric() {
		seen := make(map[float64]struct{}, len(c.Numeric))
		for _, v := range c.Numeric {
			if math.IsNaN(v) {
				continue
			}
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[string]struct{}, len(c.Text))
	for _, v := range c.Text {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// NullCount returns the number of missing cells (NaN or empty string)
func (c *Column) NullCount() int {
	count := 0
	if c.IsNumeric() {
		for _, v := range c.Numeric {
			if math.IsNaN(v) {
				count++
			}
		}
		return count
	}
	for _, v := range c.Text {
		if v == "" {
			count++
		}
	}
	return count
}

// Label returns the cell at row i formatted as a string
func (c *Column) Label(i int) string {
	if c.IsNumeric() {
		return FormatNumber(c.Numeric[i])
	}
	return c.Text[i]
}

// Dataset is an ordered table of named, typed columns. The pipeline never
// mutates a Dataset; it only derives views from it.
type Dataset struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

// NewDataset creates a dataset and checks that all columns have equal length
// and unique names
func NewDataset(name string, columns ...*Column) (*Dataset, error) {
	seen := make(map[string]bool, len(columns))
	rows := -1
	for _, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("column must not be nil")
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name '%s'", col.Name)
		}
		seen[col.Name] = true
		if rows == -1 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("column '%s' has %d rows, expected %d", col.Name, col.Len(), rows)
		}
	}
	return &Dataset{Name: name, Columns: columns}, nil
}

// Rows returns the row count n
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Column looks up a column by name
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return nil, false
}

// ColumnNames returns column names in dataset order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// NumericColumns returns all numeric columns in dataset order
func (d *Dataset) NumericColumns() []*Column {
	var cols []*Column
	for _, col := range d.Columns {
		if col.IsNumeric() {
			cols = append(cols, col)
		}
	}
	return cols
}

// Summary describes the dataset the way the upload endpoint reports it
func (d *Dataset) Summary() *DatasetSummary {
	nulls := make(map[string]int, len(d.Columns))
	for _, col := range d.Columns {
		nulls[col.Name] = col.NullCount()
	}
	return &DatasetSummary{
		NRows:      d.Rows(),
		NColumns:   len(d.Columns),
		Columns:    d.ColumnNames(),
		NullCounts: nulls,
	}
}

// DatasetSummary holds the shape of an uploaded dataset
type DatasetSummary struct {
	NRows       int            `json:"n_rows"`
	NColumns    int            `json:"n_columns"`
	Columns     []string       `json:"columns"`
	NullCounts  map[string]int `json:"null_counts"`
	ContentType string         `json:"content_type,omitempty"`
}

// ValueCount is one bucket of a value_counts style tally
type ValueCount struct {
	Label string
	Count int
}

// ValueCounts tallies the column's values, most frequent first; ties are
// ordered by label
func (c *Column) ValueCounts() []ValueCount {
	counts := make(map[string]int)
	var order []string
	for i := 0; i < c.Len(); i++ {
		if c.IsNumeric() && math.IsNaN(c.Numeric[i]) {
			continue
		}
		label := c.Label(i)
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	result := make([]ValueCount, 0, len(order))
	for _, label := range order {
		result = append(result, ValueCount{Label: label, Count: counts[label]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	return result
}

// FormatNumber renders a float the shortest way that round-trips
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
