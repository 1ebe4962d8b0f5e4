package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestStore(t, Options{})

	ttls := map[string]time.Duration{"a": time.Second, "b": 2 * time.Second, "c": time.Hour}
	for id, ttl := range ttls {
		_, err := s.Add(ctx, StringKey(id), value.String(id), PutOptions{ExpiresIn: ttl})
		require.NoError(t, err)
	}
	_, err := s.Add(ctx, StringKey("forever"), value.String("f"), PutOptions{})
	require.NoError(t, err)

	n, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clk.Advance(2 * time.Second)
	n, err = s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalItems)
	assert.Equal(t, 0, st.ExpiredItemsPending)

	n, err = s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestStore(t, Options{})

	_, err := s.Add(ctx, StringKey("a"), value.MustFromAny(map[string]any{"s": "hello", "b": []byte{1, 2, 3}}), PutOptions{})
	require.NoError(t, err)
	_, err = s.Add(ctx, StringKey("b"), value.String("expiring"), PutOptions{ExpiresIn: time.Second})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalItems: 2, TotalSizeBytes: 16, ExpiredItemsPending: 0}, st)

	clk.Advance(time.Second)
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalItems: 1, TotalSizeBytes: 8, ExpiredItemsPending: 1}, st)
}
