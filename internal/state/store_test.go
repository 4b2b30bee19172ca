package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	stop := 42000.5
	rec := &PositionRecord{
		ID:             "btc-long",
		Symbol:         "BTCUSDT",
		Side:           "long",
		Timeframe:      "15m",
		Status:         StatusActive,
		CurrentStop:    &stop,
		CalculatedStop: 42100.0,
		LastRegime:     1,
		BarsSinceOpen:  7,
		EntryPrice:     41000,
		Size:           0.5,
		LastCheckedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.SavePosition(rec))
	assert.False(t, rec.UpdatedAt.IsZero(), "save stamps the record")

	loaded, found, err := store.LoadPosition("btc-long")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, StatusActive, loaded.Status)
	require.NotNil(t, loaded.CurrentStop)
	assert.Equal(t, 42000.5, *loaded.CurrentStop)
	assert.Equal(t, 7, loaded.BarsSinceOpen)
	assert.Equal(t, 1, loaded.LastRegime)
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	rec, found, err := store.LoadPosition("ghost")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	rec := &PositionRecord{ID: "p1", Symbol: "ETHUSDT", Status: StatusActive, BarsSinceOpen: 1}
	require.NoError(t, store.SavePosition(rec))

	rec.BarsSinceOpen = 2
	require.NoError(t, store.SavePosition(rec))

	loaded, found, err := store.LoadPosition("p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, loaded.BarsSinceOpen)
}

func TestStore_RetirePosition(t *testing.T) {
	store := newTestStore(t)

	rec := &PositionRecord{ID: "p1", Symbol: "ETHUSDT", Status: StatusActive}
	require.NoError(t, store.SavePosition(rec))
	require.NoError(t, store.RetirePosition("p1"))

	_, found, err := store.LoadPosition("p1")
	require.NoError(t, err)
	assert.False(t, found)

	// Retiring twice is not an error
	assert.NoError(t, store.RetirePosition("p1"))
}

func TestStore_OperationLogOrdering(t *testing.T) {
	store := newTestStore(t)

	old := 100.0
	first := 105.0
	ops := []OperationRecord{
		{PositionID: "p1", Symbol: "BTCUSDT", Action: "update_stop", Message: "stop moved", OldValue: &old, NewValue: &first, Success: true},
		{PositionID: "p1", Symbol: "BTCUSDT", Action: "error", Message: "exchange rejected", Success: false, Error: "rate limit"},
		{PositionID: "p2", Symbol: "ETHUSDT", Action: "info", Message: "position closed", Success: true},
	}
	for _, op := range ops {
		require.NoError(t, store.AppendOperation(op))
	}

	read, err := store.ReadOperations()
	require.NoError(t, err)
	require.Len(t, read, 3)

	assert.Equal(t, "update_stop", read[0].Action)
	require.NotNil(t, read[0].NewValue)
	assert.Equal(t, 105.0, *read[0].NewValue)
	assert.False(t, read[0].Time.IsZero(), "append stamps unset times")

	assert.Equal(t, "error", read[1].Action)
	assert.Equal(t, "rate limit", read[1].Error)
	assert.Equal(t, "p2", read[2].PositionID)
}

func TestStore_ReadOperationsEmpty(t *testing.T) {
	store := newTestStore(t)

	ops, err := store.ReadOperations()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SavePosition(&PositionRecord{ID: "p1", Symbol: "BTCUSDT"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()))
	}
}
