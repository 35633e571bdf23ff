package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var got []entry
	assert.ErrorIs(t, s.Get(ctx, "missing", &got), ErrMiss)

	want := []entry{{Name: "Pune", Lat: 18.52}}
	require.NoError(t, s.Set(ctx, "q:pune", want, time.Minute))
	require.NoError(t, s.Get(ctx, "q:pune", &got))
	assert.Equal(t, want, got)
	assert.Equal(t, 1, s.Len(ctx))

	require.NoError(t, s.Delete(ctx, "q:pune"))
	assert.ErrorIs(t, s.Get(ctx, "q:pune", &got), ErrMiss)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory(10))
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	var v string
	assert.ErrorIs(t, m.Get(ctx, "k", &v), ErrMiss)
	assert.Equal(t, 0, m.Len(ctx))
}

func TestMemory_ResetWhenFull(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, m.Set(ctx, k, k, 0))
	}
	assert.Equal(t, 1, m.Len(ctx))

	var v string
	require.NoError(t, m.Get(ctx, "c", &v))
	assert.Equal(t, "c", v)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), "redis://"+mr.Addr(), "evroute:test:")
	require.NoError(t, err)
	defer r.Close()

	exerciseStore(t, r)

	require.NoError(t, r.Set(context.Background(), "ttl", "v", time.Second))
	mr.FastForward(2 * time.Second)
	var v string
	assert.ErrorIs(t, r.Get(context.Background(), "ttl", &v), ErrMiss)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "://nope", "")
	assert.Error(t, err)
}
