package clock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemClock(t *testing.T) {
	now := SystemClock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestClockFunc(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := ClockFunc(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		id := NewID()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestRandomToken(t *testing.T) {
	token := RandomToken(4)
	assert.Len(t, token, 8)
	assert.NotEqual(t, token, RandomToken(4))
}

func TestSleep(t *testing.T) {
	t.Run("returns after the delay", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("returns early when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
