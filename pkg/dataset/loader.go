package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sjwhitworth/golearn/base"

	"github.com/hs170703/insightfull/pkg/models"
)

// LoadCSV parses a CSV file with a header row into a Dataset. Columns are
// typed by golearn's sniffing; files it cannot type consistently (missing
// cells, mixed columns) are re-read and typed per column, numeric when every
// non-empty cell parses as a number.
func LoadCSV(path string) (*models.Dataset, error) {
	name := filepath.Base(path)
	ds, err := loadWithGolearn(path, name)
	if err == nil {
		return ds, nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", openErr)
	}
	defer f.Close()
	return ReadCSV(f, name)
}

// loadWithGolearn converts golearn instances into a Dataset. golearn panics
// on cells that do not match the sniffed attribute type, so panics are
// recovered into errors.
func loadWithGolearn(path, name string) (ds *models.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("golearn could not parse %s: %v", name, r)
		}
	}()

	inst, err := base.ParseCSVToInstances(path, true)
	if err != nil {
		return nil, err
	}

	_, rows := inst.Size()
	attrs := inst.AllAttributes()
	columns := make([]*models.Column, 0, len(attrs))
	for _, attr := range attrs {
		spec, err := inst.GetAttribute(attr)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve attribute %s: %w", attr.GetName(), err)
		}
		switch a := attr.(type) {
		case *base.FloatAttribute:
			values := make([]float64, rows)
			for i := 0; i < rows; i++ {
				values[i] = base.UnpackBytesToFloat(inst.Get(spec, i))
			}
			columns = append(columns, models.NewNumericColumn(a.GetName(), values))
		case *base.CategoricalAttribute:
			values := make([]string, rows)
			for i := 0; i < rows; i++ {
				values[i] = a.GetStringFromSysVal(inst.Get(spec, i))
			}
			// golearn types columns from the first row only
			columns = append(columns, typeColumn(a.GetName(), values))
		default:
			return nil, fmt.Errorf("unsupported attribute type for column %s", attr.GetName())
		}
	}
	if len(columns) == 0 {
		return nil, errors.New("CSV has no columns")
	}
	return models.NewDataset(name, columns...)
}

// ReadCSV parses CSV from a reader, typing each column as numeric when all of
// its non-empty cells parse as floats. Empty numeric cells become NaN.
func ReadCSV(r io.Reader, name string) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}

	header := records[0]
	body := records[1:]
	columns := make([]*models.Column, len(header))
	for j, colName := range header {
		cells := make([]string, len(body))
		for i, record := range body {
			if j < len(record) {
				cells[i] = record[j]
			}
		}
		columns[j] = typeColumn(strings.TrimSpace(colName), cells)
	}
	return models.NewDataset(name, columns...)
}

func typeColumn(name string, cells []string) *models.Column {
	values := make([]float64, len(cells))
	numeric := false
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return models.NewTextColumn(name, cells)
		}
		values[i] = v
		numeric = true
	}
	if !numeric {
		return models.NewTextColumn(name, cells)
	}
	return models.NewNumericColumn(name, values)
}
