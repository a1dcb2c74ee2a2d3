package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/port"
	redisstore "rateintake/internal/repository/redis"
)

func newStore(t *testing.T, ttl time.Duration) (*redisstore.DraftStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisstore.NewClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewDraftStore(client, ttl), mr
}

func draft(id uuid.UUID, savedAt time.Time) *port.Draft {
	return &port.Draft{
		SessionID:        id,
		ProviderID:       "prov-1",
		SupplierName:     "Acme",
		ProviderCategory: "staffing",
		State:            json.RawMessage(`{"rows":[{"job_title":"Engineer","us_rate":100}],"estimated_total":3}`),
		SavedAt:          savedAt,
	}
}

func TestDraftStore_SaveGet(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, draft(id, time.Now().UTC())))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.SessionID)
	assert.Equal(t, "staffing", got.ProviderCategory)
	assert.Equal(t, "Acme", got.SupplierName)
	assert.JSONEq(t, `{"rows":[{"job_title":"Engineer","us_rate":100}],"estimated_total":3}`, string(got.State))

	assert.Equal(t, time.Hour, mr.TTL("rateintake:draft:"+id.String()))
}

func TestDraftStore_GetMissing(t *testing.T) {
	store, _ := newStore(t, time.Hour)

	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftStore_SaveStampsTime(t *testing.T) {
	store, _ := newStore(t, 0)
	d := draft(uuid.New(), time.Time{})

	require.NoError(t, store.Save(context.Background(), d))
	assert.False(t, d.SavedAt.IsZero())
}

func TestDraftStore_Delete(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, draft(id, time.Now().UTC())))
	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id), "deleting twice is fine")

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ids, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDraftStore_RecentNewestFirstAndPrunesExpired(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	base := time.Now().UTC()

	oldest, middle, newest := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.Save(ctx, draft(oldest, base.Add(-2*time.Hour))))
	require.NoError(t, store.Save(ctx, draft(middle, base.Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, draft(newest, base)))

	ids, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newest, middle}, ids)

	mr.Del("rateintake:draft:" + middle.String())
	ids, err = store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newest, oldest}, ids)

	members, err := mr.ZMembers("rateintake:drafts")
	require.NoError(t, err)
	assert.NotContains(t, members, middle.String())
}

func TestDraftStore_TTLExpiry(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, draft(id, time.Now().UTC())))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftStore_Ping(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestDraftStore_ClientErrors(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	store := redisstore.NewDraftStore(client, time.Hour)

	_, err := store.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestNoopDraftStore(t *testing.T) {
	var store port.DraftStore = redisstore.NoopDraftStore{}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, draft(uuid.New(), time.Now())))
	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ids, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
