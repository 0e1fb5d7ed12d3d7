package redisrepo

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/pkg/conversation"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestUpdateAndGet(t *testing.T) {
	mr, rdb := setupRedis(t)
	repo := NewContextRepository(rdb, 30*time.Minute)
	ctx := t.Context()

	_, err := repo.Update(ctx, "s1", "user_performance", conversation.Values{Usuario: "user1"})
	require.NoError(t, err)
	got, err := repo.Update(ctx, "s1", "branch_ranking", conversation.Values{Sucursal: "Sucursal B"})
	require.NoError(t, err)

	want := conversation.Context{Usuario: "user1", Sucursal: "Sucursal B", TipoConsulta: "branch_ranking"}
	assert.Equal(t, want, got)

	stored, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	assert.True(t, mr.Exists("rolplay:context:s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("rolplay:context:s1"))
}

func TestGetMissingSession(t *testing.T) {
	_, rdb := setupRedis(t)
	repo := NewContextRepository(rdb, 0)

	got, err := repo.Get(t.Context(), "nobody")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestGetCorruptValue(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set("rolplay:context:s1", "{not json"))

	_, err := NewContextRepository(rdb, 0).Get(t.Context(), "s1")
	assert.ErrorContains(t, err, "failed to decode context")
}

func TestDelete(t *testing.T) {
	mr, rdb := setupRedis(t)
	repo := NewContextRepository(rdb, 0)
	ctx := t.Context()

	_, err := repo.Update(ctx, "s1", "trend", conversation.Values{Fecha: "15/03/24"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "s1"))

	assert.False(t, mr.Exists("rolplay:context:s1"))
}

func TestConcurrentUpdatesKeepEveryField(t *testing.T) {
	_, rdb := setupRedis(t)
	repo := NewContextRepository(rdb, 0)
	ctx := t.Context()

	values := []conversation.Values{
		{Usuario: "user1"},
		{Sucursal: "Sucursal A"},
		{Actividad: "Ronda 1"},
		{Fecha: "15/03/24"},
	}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v conversation.Values) {
			defer wg.Done()
			_, err := repo.Update(ctx, "shared", "general_stats", v)
			assert.NoError(t, err)
		}(v)
	}
	wg.Wait()

	got, err := repo.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, conversation.Context{
		Fecha:        "15/03/24",
		Usuario:      "user1",
		Actividad:    "Ronda 1",
		Sucursal:     "Sucursal A",
		TipoConsulta: "general_stats",
	}, got)
}

func TestZeroTTLPersists(t *testing.T) {
	mr, rdb := setupRedis(t)
	repo := NewContextRepository(rdb, 0)

	_, err := repo.Update(t.Context(), "s1", "user_performance", conversation.Values{Usuario: "user1"})
	require.NoError(t, err)

	assert.Zero(t, mr.TTL("rolplay:context:s1"))
	mr.FastForward(24 * time.Hour)
	assert.True(t, mr.Exists("rolplay:context:s1"))
}
