package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(ttl, WithClock(clock.Now), WithSweepInterval(time.Hour))
	t.Cleanup(s.Close)
	return s, clock
}

func TestStore_BeginGetSetAdvance(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	d := s.Begin("u1", "create_estimate", "")
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 0, d.FieldIndex)
	assert.Empty(t, d.Fields)

	require.True(t, s.SetField("u1", "title", "Website"))
	require.True(t, s.Advance("u1"))

	got, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 1, got.FieldIndex)
	assert.Equal(t, "Website", got.Fields["title"])

	// Returned drafts are copies.
	got.Fields["title"] = "mutated"
	again, _ := s.Get("u1")
	assert.Equal(t, "Website", again.Fields["title"])
}

func TestStore_BeginReplacesPriorDraft(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	first := s.Begin("u1", "create_estimate", "")
	s.SetField("u1", "title", "Old")
	second := s.Begin("u1", "create_template", "")

	assert.NotEqual(t, first.ID, second.ID)
	got, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "create_template", got.Flow)
	assert.Empty(t, got.Fields)
}

func TestStore_NoDraft(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	_, ok := s.Get("nobody")
	assert.False(t, ok)
	assert.False(t, s.SetField("nobody", "x", "y"))
	assert.False(t, s.Advance("nobody"))
	_, err := s.Update("nobody", func(*Draft) error { return nil })
	assert.ErrorIs(t, err, ErrNoDraft)
	s.Clear("nobody")
}

func TestStore_Update_DiscardsOnError(t *testing.T) {
	s, _ := newStore(t, time.Hour)
	s.Begin("u1", "create_estimate", "")

	boom := errors.New("rejected")
	_, err := s.Update("u1", func(d *Draft) error {
		d.Fields["title"] = "half-written"
		d.FieldIndex = 5
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Get("u1")
	assert.Equal(t, 0, got.FieldIndex)
	assert.Empty(t, got.Fields)
}

func TestStore_Take_OnlyOnce(t *testing.T) {
	s, _ := newStore(t, time.Hour)
	d := s.Begin("u1", "create_estimate", "")

	_, ok := s.Take("u1", "some-other-id")
	assert.False(t, ok)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take("u1", d.ID); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, ok = s.Get("u1")
	assert.False(t, ok)
}

func TestStore_TTLExpiry(t *testing.T) {
	s, clock := newStore(t, 30*time.Minute)
	s.Begin("u1", "create_estimate", "")

	clock.Advance(20 * time.Minute)
	require.True(t, s.Advance("u1"), "touch refreshes the TTL")

	clock.Advance(20 * time.Minute)
	_, ok := s.Get("u1")
	assert.True(t, ok)

	clock.Advance(31 * time.Minute)
	_, ok = s.Get("u1")
	assert.False(t, ok)
	_, err := s.Update("u1", func(*Draft) error { return nil })
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newStore(t, time.Minute)
	s.Begin("stale", "create_estimate", "")
	clock.Advance(2 * time.Minute)
	s.Begin("fresh", "create_estimate", "")

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	// A swept user can start again.
	s.Begin("stale", "create_template", "")
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentUsersIsolated(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("user-%d", i)
			s.Begin(uid, "create_estimate", "")
			for j := 0; j < 20; j++ {
				s.SetField(uid, fmt.Sprintf("f%d", j), uid)
				s.Advance(uid)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		uid := fmt.Sprintf("user-%d", i)
		d, ok := s.Get(uid)
		require.True(t, ok)
		assert.Equal(t, 20, d.FieldIndex)
		for _, v := range d.Fields {
			assert.Equal(t, uid, v)
		}
	}
}

func TestStore_SameUserRaceIsSerialized(t *testing.T) {
	s, _ := newStore(t, time.Hour)
	s.Begin("u1", "create_estimate", "")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Advance("u1")
		}()
	}
	wg.Wait()

	d, _ := s.Get("u1")
	assert.Equal(t, 100, d.FieldIndex)
}

func TestStore_CloseIdempotent(t *testing.T) {
	s := New(time.Minute)
	s.Close()
	s.Close()
}
