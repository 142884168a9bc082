package metadatastore

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hs170703/insightfull/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// fixedClock returns a clock that advances one second per call
func fixedClock() func() time.Time {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func testKey() models.ResultKey {
	return models.ResultKey{
		Username:     "alice",
		Filename:     "sales.csv",
		ModelType:    models.ModelTypeLinearRegression,
		TargetColumn: "Sales",
	}
}

func TestUpsertResultIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	key := testKey()

	created, err := store.UpsertResult(key, []byte(`{"r2_score":0.1}`))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.UpsertResult(key, []byte(`{"r2_score":0.9}`))
	require.NoError(t, err)
	assert.False(t, created)

	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.JSONEq(t, `{"r2_score":0.9}`, string(results[0].Result))
	assert.Equal(t, key, results[0].ResultKey)
}

func TestUpsertResultKeepsIDAndCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	store.now = fixedClock()
	key := testKey()

	_, err := store.UpsertResult(key, []byte(`{"v":1}`))
	require.NoError(t, err)
	first, err := store.ListResultsByUser("alice")
	require.NoError(t, err)

	_, err = store.UpsertResult(key, []byte(`{"v":2}`))
	require.NoError(t, err)
	second, err := store.ListResultsByUser("alice")
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].CreatedAt, second[0].CreatedAt)
	assert.True(t, second[0].Timestamp.After(first[0].Timestamp))
}

func TestUpsertResultDistinctKeys(t *testing.T) {
	store := setupTestStore(t)
	store.now = fixedClock()

	key := testKey()
	other := key
	other.TargetColumn = "Profit"
	otherModel := key
	otherModel.ModelType = models.ModelTypeNaiveBayes

	for _, k := range []models.ResultKey{key, other, otherModel} {
		created, err := store.UpsertResult(k, []byte(`{}`))
		require.NoError(t, err)
		assert.True(t, created)
	}

	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)
	require.Len(t, results, 3)
	// newest first
	assert.Equal(t, models.ModelTypeNaiveBayes, results[0].ModelType)

	results, err = store.ListResultsByUser("bob")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertResultConcurrent(t *testing.T) {
	store := setupTestStore(t)
	key := testKey()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := store.UpsertResult(key, []byte(`{}`))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUpsertResultValidation(t *testing.T) {
	store := setupTestStore(t)

	key := testKey()
	key.TargetColumn = ""
	_, err := store.UpsertResult(key, []byte(`{}`))
	assert.Error(t, err)

	_, err = store.UpsertResult(testKey(), []byte(`not json`))
	assert.Error(t, err)
}

func TestGetResult(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.UpsertResult(testKey(), []byte(`{"ok":true}`))
	require.NoError(t, err)
	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)
	id := results[0].ID

	result, err := store.GetResult("alice", id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result.Result))

	// results are private to their owner
	_, err = store.GetResult("bob", id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetResult("alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoredResultJSON(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.UpsertResult(testKey(), []byte(`{"model_type":"linear_regression"}`))
	require.NoError(t, err)
	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)

	data, err := json.Marshal(results[0])
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, "Sales", decoded["target_column"])
	assert.Contains(t, decoded, "_id")
	assert.Contains(t, decoded, "timestamp")
	assert.IsType(t, map[string]interface{}{}, decoded["result"])
}

func TestSaveUserFile(t *testing.T) {
	store := setupTestStore(t)
	summary := &models.DatasetSummary{
		NRows:      3,
		NColumns:   2,
		Columns:    []string{"a", "b"},
		NullCounts: map[string]int{"a": 0, "b": 1},
	}

	created, err := store.SaveUserFile("alice", "data.csv", summary)
	require.NoError(t, err)
	assert.True(t, created)

	summary.NRows = 5
	created, err = store.SaveUserFile("alice", "data.csv", summary)
	require.NoError(t, err)
	assert.False(t, created)

	files, err := store.ListUserFiles("alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 5, files[0].FileData.NRows)
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, files[0].FileData.NullCounts)

	file, err := store.GetUserFile("alice", "data.csv")
	require.NoError(t, err)
	assert.Equal(t, files[0].ID, file.ID)

	_, err = store.GetUserFile("bob", "data.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers(t *testing.T) {
	store := setupTestStore(t)

	created, err := store.CreateUser("alice", []byte("hash"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateUser("alice", []byte("other"))
	require.NoError(t, err)
	assert.False(t, created)

	user, err := store.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), user.PasswordHash)
	assert.NotEmpty(t, user.ID)

	_, err = store.GetUser("bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.CreateUser("  ", []byte("hash"))
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store, err := NewSQLiteStore(MemoryDSN)
	require.NoError(t, err)
	defer store.Close()

	created, err := store.UpsertResult(testKey(), []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, created)

	results, err := store.ListResultsByUser("alice")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
