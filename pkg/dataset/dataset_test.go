package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "Month,Spend,Sales\nJan,10,100\nFeb,20,190\nMar,30,310\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	ds, err := LoadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, "sales.csv", ds.Name)
	assert.Equal(t, []string{"Month", "Spend", "Sales"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.Rows())

	month, ok := ds.Column("Month")
	require.True(t, ok)
	assert.False(t, month.IsNumeric())
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, month.Text)

	sales, ok := ds.Column("Sales")
	require.True(t, ok)
	assert.True(t, sales.IsNumeric())
	assert.Equal(t, []float64{100, 190, 310}, sales.Numeric)
}

func TestLoadCSVMissingCells(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gaps.csv", "a,b,label\n1,,x\n2,5,\n3,6,y\n")

	ds, err := LoadCSV(path)
	require.NoError(t, err)

	b, _ := ds.Column("b")
	require.True(t, b.IsNumeric())
	assert.True(t, math.IsNaN(b.Numeric[0]))
	assert.Equal(t, 5.0, b.Numeric[1])

	summary := ds.Summary()
	assert.Equal(t, 3, summary.NRows)
	assert.Equal(t, 3, summary.NColumns)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "label": 1}, summary.NullCounts)
}

func TestReadCSVMixedColumn(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("id,code\n1,10\n2,A7\n"), "mixed.csv")
	require.NoError(t, err)

	code, _ := ds.Column("code")
	assert.False(t, code.IsNumeric())
	assert.Equal(t, []string{"10", "A7"}, code.Text)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv")
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"), "dup.csv")
	assert.Error(t, err)
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("data.csv"))
	assert.NoError(t, ValidateFilename("DATA.CSV"))
	assert.ErrorIs(t, ValidateFilename("data.xlsx"), ErrNotCSV)
	assert.ErrorIs(t, ValidateFilename("../data.csv"), ErrInvalidName)
	assert.ErrorIs(t, ValidateFilename("dir/data.csv"), ErrInvalidName)
	assert.ErrorIs(t, ValidateFilename(".csv"), ErrInvalidName)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("alice", "sales.csv")
	assert.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, store.Save("alice", "sales.csv", []byte(salesCSV)))
	ds, err := store.Load("alice", "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())

	// other users cannot see the upload
	_, err = store.Load("bob", "sales.csv")
	assert.ErrorIs(t, err, ErrFileNotFound)

	// re-upload replaces
	require.NoError(t, store.Save("alice", "sales.csv", []byte("Spend,Sales\n1,2\n")))
	ds, err = store.Load("alice", "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Rows())

	assert.Error(t, store.Save("../evil", "x.csv", nil))
}

func testDataset(t *testing.T) *models.Dataset {
	t.Helper()
	ds, err := models.NewDataset("d.csv", models.NewNumericColumn("x", []float64{1, 2}))
	require.NoError(t, err)
	return ds
}

func TestCacheLoadsOnMiss(t *testing.T) {
	calls := 0
	loader := func(username, filename string) (*models.Dataset, error) {
		calls++
		return testDataset(t), nil
	}
	cache := NewCache(time.Hour, loader, nil)

	first, err := cache.Get("alice", "d.csv")
	require.NoError(t, err)
	second, err := cache.Get("alice", "d.csv")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheLoaderError(t *testing.T) {
	cache := NewCache(time.Hour, func(string, string) (*models.Dataset, error) {
		return nil, ErrFileNotFound
	}, nil)

	_, err := cache.Get("alice", "missing.csv")
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Equal(t, 0, cache.Len())

	noLoader := NewCache(time.Hour, nil, nil)
	_, err = noLoader.Get("alice", "missing.csv")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCacheEvict(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(time.Hour, nil, nil)
	cache.now = func() time.Time { return now }

	cache.Put("alice", "old.csv", testDataset(t))
	now = now.Add(50 * time.Minute)
	cache.Put("alice", "new.csv", testDataset(t))
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, cache.Evict())
	_, err := cache.Get("alice", "old.csv")
	assert.Error(t, err)
	_, err = cache.Get("alice", "new.csv")
	assert.NoError(t, err)
}

func TestCacheStartRejectsBadSchedule(t *testing.T) {
	cache := NewCache(time.Hour, nil, nil)
	assert.Error(t, cache.Start("not a schedule"))

	require.NoError(t, cache.Start("@every 1h"))
	cache.Stop()
}
