package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLedger()
	l.now = func() time.Time { return now }

	ok, err := l.Claim(ctx, "invite:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "first claim")

	ok, err = l.Claim(ctx, "invite:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "claim of a held key")

	ok, err = l.Claim(ctx, "invite:2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "other keys are independent")

	t.Run("released keys can be claimed again", func(t *testing.T) {
		require.NoError(t, l.Release(ctx, "invite:1"))
		ok, err := l.Claim(ctx, "invite:1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired keys can be claimed again", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		ok, err := l.Claim(ctx, "invite:2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
