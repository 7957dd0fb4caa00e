package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/opsboard/dataset"
)

type payload struct {
	Rows  int    `json:"rows"`
	Label string `json:"label"`
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := New("", 0)
	require.NoError(t, err)
	assert.False(t, c.Available())

	require.NoError(t, c.Set(context.Background(), "k", payload{Rows: 1}))
	var got payload
	hit, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Close())
}

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "snap", payload{Rows: 3, Label: "Ana"}))

	var got payload
	hit, err := c.Get(ctx, "snap", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Rows: 3, Label: "Ana"}, got)
	assert.True(t, mr.Exists("opsboard:snap"))

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "snap", &got)
	require.NoError(t, err)
	assert.False(t, hit, "expired after ttl")

	require.NoError(t, c.Set(ctx, "snap", payload{}))
	require.NoError(t, c.Delete(ctx, "snap"))
	assert.False(t, mr.Exists("opsboard:snap"))
}

func TestNewWithUnreachableServer(t *testing.T) {
	c, err := New("redis://127.0.0.1:1/0", time.Minute)
	assert.Error(t, err)
	require.NotNil(t, c)
	assert.False(t, c.Available(), "falls back to a disabled cache")
}

func TestTableFingerprint(t *testing.T) {
	a, err := dataset.FromRows("a", []string{"x", "y"}, [][]string{{"1", "Ana"}, {"2", ""}})
	require.NoError(t, err)
	b, err := dataset.FromRows("b", []string{"x", "y"}, [][]string{{"1", "Ana"}, {"2", ""}})
	require.NoError(t, err)
	c, err := dataset.FromRows("c", []string{"x", "y"}, [][]string{{"1", "Ana"}, {"3", ""}})
	require.NoError(t, err)

	assert.Equal(t, TableFingerprint(a), TableFingerprint(b), "name does not matter")
	assert.NotEqual(t, TableFingerprint(a), TableFingerprint(c))
	assert.NotEqual(t, TableFingerprint(a), TableFingerprint(dataset.NewSubView(a, []int{0})))
}

func TestKey(t *testing.T) {
	k1, err := Key("snapshot", 42, map[string][]string{"Operador": {"Ana"}})
	require.NoError(t, err)
	k2, err := Key("snapshot", 42, map[string][]string{"Operador": {"Ana"}})
	require.NoError(t, err)
	k3, err := Key("snapshot", 42, map[string][]string{"Operador": {"Bruno"}})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "snapshot:2a:")

	_, err = Key("snapshot", 1, func() {})
	assert.Error(t, err)
}
