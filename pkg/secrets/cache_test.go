package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type appCreds struct {
	ClientID string
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache[appCreds](time.Minute)
	c.Put("athlete|strava", appCreds{ClientID: "123"})

	got, ok := c.Get("athlete|strava")
	assert.True(t, ok)
	assert.Equal(t, "123", got.ClientID)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsMissAndEvicted(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewCache[appCreds](time.Minute)
	c.now = func() time.Time { return now }

	c.Put("k", appCreds{ClientID: "123"})
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Bust(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.Put("k", "v")
	c.Bust("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_CleanupExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewCache[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Put("old", "v")
	now = now.Add(30 * time.Second)
	c.Put("fresh", "v")
	now = now.Add(45 * time.Second)

	c.cleanupExpired()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCache_StartCleanerStops(t *testing.T) {
	c := NewCache[string](time.Millisecond)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		c.StartCleaner(time.Millisecond, stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
