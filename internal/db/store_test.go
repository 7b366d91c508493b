package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredloop/kindred/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadMemory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := &types.MemoryRecord{
		ID:              "m1",
		UserID:          "u1",
		BotID:           "b1",
		Summary:         "adopted a dog named Biscuit",
		Embedding:       []float32{0.1, 0.2, 0.3},
		EventType:       "life_event",
		ImportanceLevel: types.ImportanceHigh,
		Keywords:        []string{"dog", "biscuit"},
	}
	require.NoError(t, store.SaveMemory(ctx, rec))

	got, err := store.MemoriesByOwner(ctx, "u1", "b1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "adopted a dog named Biscuit", got[0].Summary)
	assert.Equal(t, types.ImportanceHigh, got[0].ImportanceLevel)
	assert.Equal(t, []string{"dog", "biscuit"}, got[0].Keywords)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got[0].Embedding)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestMemoriesByOwnerScoping(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, rec := range []*types.MemoryRecord{
		{ID: "a", UserID: "u1", BotID: "b1", Summary: "one", EventType: "preference", ImportanceLevel: types.ImportanceMedium},
		{ID: "b", UserID: "u2", BotID: "b1", Summary: "two", EventType: "preference", ImportanceLevel: types.ImportanceMedium},
		{ID: "c", UserID: "u1", BotID: "b2", Summary: "three", EventType: "preference", ImportanceLevel: types.ImportanceMedium},
	} {
		require.NoError(t, store.SaveMemory(ctx, rec))
	}

	got, err := store.MemoriesByOwner(ctx, "u1", "b1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Summary)
}

func TestMemoriesByEventTypesOrdering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, rec := range []*types.MemoryRecord{
		{ID: "low", UserID: "u1", BotID: "b1", Summary: "low one", EventType: "emotion", ImportanceLevel: types.ImportanceLow},
		{ID: "crit", UserID: "u1", BotID: "b1", Summary: "critical one", EventType: "emotion", ImportanceLevel: types.ImportanceCritical},
		{ID: "med", UserID: "u1", BotID: "b1", Summary: "medium one", EventType: "emotion", ImportanceLevel: types.ImportanceMedium},
		{ID: "other", UserID: "u1", BotID: "b1", Summary: "different type", EventType: "goal", ImportanceLevel: types.ImportanceCritical},
	} {
		require.NoError(t, store.SaveMemory(ctx, rec))
	}

	got, err := store.MemoriesByEventTypes(ctx, "u1", "b1", []string{"emotion"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "critical one", got[0].Summary)
	assert.Equal(t, "medium one", got[1].Summary)
}

func TestBumpAccessCount(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := &types.MemoryRecord{
		ID: "m1", UserID: "u1", BotID: "b1", Summary: "bump me",
		EventType: "preference", ImportanceLevel: types.ImportanceMedium,
	}
	require.NoError(t, store.SaveMemory(ctx, rec))

	store.BumpAccessCount(ctx, []string{"m1"})
	store.BumpAccessCount(ctx, []string{"m1"})

	got, err := store.MemoriesByOwner(ctx, "u1", "b1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].AccessCount)
}
