package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/prediction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDataDir(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "missing", "nested")

	store, err := New(dataPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dataPath, DBFile)); err != nil {
		t.Errorf("Database file was not created: %v", err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := New(filepath.Join(file, "nested"))
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestInsertDraw_WriteOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := draw.Event{Date: day(0).Add(15 * time.Hour), Tier: draw.TopTier, Code: "01234"}
	inserted, err := store.InsertDraw(ctx, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	e.Code = "99999"
	inserted, err = store.InsertDraw(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted, "second write for the same date and tier is ignored")

	got, found, err := store.FindDraw(ctx, day(0), draw.TopTier)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "01234", got.Code)
	assert.Equal(t, day(0), got.Date)

	_, found, err = store.FindDraw(ctx, day(1), draw.TopTier)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.InsertDraw(ctx, draw.Event{Date: day(0), Tier: "G9", Code: "1"})
	assert.Error(t, err)

	n, err := store.CountDraws()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListDays_GroupsAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []draw.Event{
		{Date: day(2), Tier: "G7.4", Code: "11"},
		{Date: day(0), Tier: draw.TopTier, Code: "01234"},
		{Date: day(2), Tier: draw.TopTier, Code: "23456"},
		{Date: day(1), Tier: "G1", Code: "55555"},
		{Date: day(0), Tier: "G3.6", Code: "12"},
		{Date: day(10), Tier: draw.TopTier, Code: "98765"},
	}
	for _, e := range events {
		_, err := store.InsertDraw(ctx, e)
		require.NoError(t, err)
	}

	days, err := store.ListDays(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, day(0), days[0].Date)
	assert.Equal(t, day(1), days[1].Date)
	assert.Equal(t, day(2), days[2].Date)
	assert.Equal(t, day(10), days[3].Date)
	assert.Len(t, days[0].Events, 2)
	assert.Equal(t, "12", days[0].Events["G3.6"], "malformed codes are stored as received")
	assert.Equal(t, "11", days[2].Events["G7.4"])

	days, err = store.ListDays(ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, day(1), days[0].Date)
	assert.Equal(t, day(2), days[1].Date)
	assert.Len(t, days[1].Events, 2)

	days, err = store.ListDays(ctx, day(3), time.Time{})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, day(10), days[0].Date)
}

func TestListDays_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListDays(ctx, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictions_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	positions := [][]string{{"0", "1", "2", "3", "4"}}
	for _, n := range []int{5, 3, 4} {
		require.NoError(t, store.UpsertPrediction(ctx, prediction.Record{
			TargetDate: day(n),
			Model:      "m",
			Positions:  positions,
		}))
	}

	unscored, err := store.ListUnscored(ctx)
	require.NoError(t, err)
	require.Len(t, unscored, 3)
	assert.Equal(t, day(3), unscored[0].TargetDate)
	assert.Equal(t, day(4), unscored[1].TargetDate)
	assert.Equal(t, day(5), unscored[2].TargetDate)

	require.NoError(t, store.MarkScored(ctx, day(4)))
	require.NoError(t, store.MarkScored(ctx, day(4)), "marking twice is a no-op")

	unscored, err = store.ListUnscored(ctx)
	require.NoError(t, err)
	require.Len(t, unscored, 2)

	rec, err := store.GetPrediction(ctx, day(4))
	require.NoError(t, err)
	assert.True(t, rec.Scored)

	// regenerating a scored record never resets the flag
	require.NoError(t, store.UpsertPrediction(ctx, prediction.Record{TargetDate: day(4), Model: "m", Positions: positions}))
	rec, err = store.GetPrediction(ctx, day(4))
	require.NoError(t, err)
	assert.True(t, rec.Scored)

	all, err := store.ListPredictions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = store.GetPrediction(ctx, day(9))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.MarkScored(ctx, day(9)), ErrNotFound)
}

func TestModels_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.LoadModel(ctx, "positional-digit")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveModel(ctx, "positional-digit", []byte(`{"v":1}`)))
	require.NoError(t, store.SaveModel(ctx, "positional-digit", []byte(`{"v":2}`)))

	blob, found, err := store.LoadModel(ctx, "positional-digit")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"v":2}`, string(blob))
}
