package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innkeephq/innkeep/internal/flag/domain"
)

func TestService_UpsertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{Key: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	_, err = svc.Upsert(ctx, domain.UpsertRequest{Key: "x", Status: "sometimes"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Upsert(ctx, domain.UpsertRequest{Key: "x", Scope: "galaxy"})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)

	_, err = svc.Upsert(ctx, domain.UpsertRequest{Key: "x", RolloutPercentage: intPtr(101)})
	assert.ErrorIs(t, err, domain.ErrInvalidRollout)
}

func TestService_UpsertNormalizesKey(t *testing.T) {
	svc := newTestService(t)

	flag, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		Key:    "New Dashboard!",
		Status: domain.StatusEnabled,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-dashboard", flag.Key)
	assert.Equal(t, "new-dashboard", flag.Name, "name defaults to the key")
	assert.Equal(t, domain.ScopeGlobal, flag.Scope)

	got, err := svc.Get(context.Background(), "new-dashboard")
	require.NoError(t, err)
	assert.Equal(t, flag.Key, got.Key)
}

func TestService_UpsertPreservesCreatedAt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, domain.UpsertRequest{Key: "x", Status: domain.StatusDisabled})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, domain.UpsertRequest{Key: "x", Status: domain.StatusEnabled})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, domain.StatusEnabled, second.Status)
}

func TestService_ListFiltersAndSorts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFlag(t, svc, domain.UpsertRequest{Key: "b-flag", Status: domain.StatusEnabled})
	seedFlag(t, svc, domain.UpsertRequest{Key: "a-flag", Status: domain.StatusEnabled})
	seedFlag(t, svc, domain.UpsertRequest{Key: "c-flag", Status: domain.StatusDisabled, Scope: domain.ScopeTenant})

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-flag", all[0].Key)
	assert.Equal(t, "b-flag", all[1].Key)

	enabled, err := svc.List(ctx, domain.ListRequest{Status: domain.StatusEnabled})
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	tenantScoped, err := svc.List(ctx, domain.ListRequest{Scope: domain.ScopeTenant})
	require.NoError(t, err)
	require.Len(t, tenantScoped, 1)
	assert.Equal(t, "c-flag", tenantScoped[0].Key)

	desc, err := svc.List(ctx, domain.ListRequest{Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "c-flag", desc[0].Key)
}

func TestService_ListPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, key := range []string{"a-flag", "b-flag", "c-flag", "d-flag", "e-flag"} {
		seedFlag(t, svc, domain.UpsertRequest{Key: key, Status: domain.StatusEnabled})
	}

	first, err := svc.List(ctx, domain.ListRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a-flag", first[0].Key)
	assert.Equal(t, "b-flag", first[1].Key)

	second, err := svc.List(ctx, domain.ListRequest{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "c-flag", second[0].Key)

	tail, err := svc.List(ctx, domain.ListRequest{Offset: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "e-flag", tail[0].Key)

	past, err := svc.List(ctx, domain.ListRequest{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFlag(t, svc, domain.UpsertRequest{Key: "x", Status: domain.StatusEnabled})
	require.NoError(t, svc.Delete(ctx, "x"))

	_, err := svc.Get(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "x"), domain.ErrNotFound)
}
