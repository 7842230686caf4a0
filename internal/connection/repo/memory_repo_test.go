package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
)

func TestMemoryRepo_OneRecordPerPair(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	saved, err := r.SaveConnection(ctx, &entity.Connection{ID: "c1", FromUserID: "a", ToUserID: "b", Status: entity.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	_, err = r.SaveConnection(ctx, &entity.Connection{ID: "c2", FromUserID: "b", ToUserID: "a", Status: entity.StatusPending})
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict, "reverse direction is the same pair")

	got, err := r.GetConnection(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
}

func TestMemoryRepo_VersionCheck(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	v1, err := r.SaveConnection(ctx, &entity.Connection{ID: "c1", FromUserID: "a", ToUserID: "b", Status: entity.StatusPending})
	require.NoError(t, err)

	first := v1.Clone()
	first.Status = entity.StatusAccepted
	second := v1.Clone()
	second.Status = entity.StatusDeclined

	v2, err := r.SaveConnection(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Version)

	_, err = r.SaveConnection(ctx, second)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	got, err := r.GetConnectionByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, got.Status)
}

func TestMemoryRepo_ListFiltersAndIsolates(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range []*entity.Connection{
		{ID: "c1", FromUserID: "a", ToUserID: "b", Type: entity.TypeConnect, Status: entity.StatusAccepted, UpdatedAt: now},
		{ID: "c2", FromUserID: "c", ToUserID: "a", Type: entity.TypeFollow, Status: entity.StatusPending, UpdatedAt: now.Add(time.Minute)},
		{ID: "c3", FromUserID: "b", ToUserID: "c", Type: entity.TypeConnect, Status: entity.StatusAccepted, UpdatedAt: now},
	} {
		_, err := r.SaveConnection(ctx, c)
		require.NoError(t, err, i)
	}

	all, err := r.ListConnections(ctx, "a", entity.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID, "newest first")

	accepted, err := r.ListConnections(ctx, "a", entity.Filter{Statuses: []entity.Status{entity.StatusAccepted}})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "c1", accepted[0].ID)

	accepted[0].Status = entity.StatusBlocked
	again, _ := r.GetConnectionByID(ctx, "c1")
	assert.Equal(t, entity.StatusAccepted, again.Status, "callers get copies")
}

func TestMemoryRepo_NotFound(t *testing.T) {
	r := NewMemoryRepo()
	_, err := r.GetConnection(context.Background(), "a", "b")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.GetConnectionByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
