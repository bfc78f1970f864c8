package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablereach/rengage-backend/internal/model"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryCampaignStore()
	ctx := context.Background()

	record := &model.CampaignRecord{
		ID:          "camp-1",
		State:       model.CampaignCreated,
		SegmentSize: 2,
	}
	require.NoError(t, store.Create(ctx, record))

	// Duplicate IDs are rejected.
	assert.Error(t, store.Create(ctx, &model.CampaignRecord{ID: "camp-1"}))

	require.NoError(t, store.UpdateState(ctx, "camp-1", model.CampaignDispatching))

	// Outcomes appended out of order come back sorted by message index.
	require.NoError(t, store.AppendOutcome(ctx, model.DeliveryOutcome{
		CampaignID: "camp-1", MessageIndex: 1, Status: model.DeliveryFailed,
	}))
	require.NoError(t, store.AppendOutcome(ctx, model.DeliveryOutcome{
		CampaignID: "camp-1", MessageIndex: 0, Status: model.DeliverySent,
	}))

	got, err := store.GetByID(ctx, "camp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.CampaignDispatching, got.State)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, 0, got.Outcomes[0].MessageIndex)
	assert.Equal(t, 1, got.Outcomes[1].MessageIndex)
}

func TestMemoryStoreGetByIDCopies(t *testing.T) {
	store := NewMemoryCampaignStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &model.CampaignRecord{ID: "camp-1"}))

	got, err := store.GetByID(ctx, "camp-1")
	require.NoError(t, err)
	got.State = model.CampaignCompleted // mutating the copy

	again, err := store.GetByID(ctx, "camp-1")
	require.NoError(t, err)
	assert.NotEqual(t, model.CampaignCompleted, again.State)
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryCampaignStore()

	got, err := store.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryCampaignStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, &model.CampaignRecord{ID: id}))
	}

	page, total, err := store.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, total, err = store.List(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, page)
}
