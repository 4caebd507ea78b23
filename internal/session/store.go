// Package session keeps the in-progress conversation draft of each user.
//
// Drafts live in memory only. Each user has a slot with its own mutex, so
// users never contend with each other; the map lock is held just long enough
// to find or create a slot. Drafts untouched for longer than the TTL are
// invisible to readers and are swept by a background janitor.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoDraft is returned by Update when the user has no live draft.
var ErrNoDraft = errors.New("no active draft")

// Draft is one user's accumulator for a flow in progress.
type Draft struct {
	// ID changes on every Begin and is the claim token passed to Take.
	ID               string
	UserID           string
	Flow             string
	FieldIndex       int
	Fields           map[string]string
	TargetEstimateID string
	StartedAt        time.Time
	TouchedAt        time.Time
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Fields = make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return &c
}

type slot struct {
	mu    sync.Mutex
	draft *Draft
	// dead is set by the janitor after removing the slot from the map.
	dead bool
}

// Store is a concurrency-safe, per-user draft store.
type Store struct {
	mu    sync.Mutex
	slots map[string]*slot

	ttl   time.Duration
	now   func() time.Time
	sweep time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSweepInterval overrides how often the janitor runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweep = d }
}

// New creates a store. A ttl of zero or less disables expiry and the janitor.
func New(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		slots: make(map[string]*slot),
		ttl:   ttl,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweep <= 0 {
		s.sweep = min(time.Minute, max(ttl/2, time.Second))
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

// withSlot runs fn with the user's slot locked. When create is false and the
// user has no slot, fn is not called and withSlot returns false.
func (s *Store) withSlot(userID string, create bool, fn func(sl *slot)) bool {
	for {
		s.mu.Lock()
		sl, ok := s.slots[userID]
		if !ok {
			if !create {
				s.mu.Unlock()
				return false
			}
			sl = &slot{}
			s.slots[userID] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if sl.dead {
			// Swept between lookup and lock; look again.
			sl.mu.Unlock()
			continue
		}
		fn(sl)
		sl.mu.Unlock()
		return true
	}
}

func (s *Store) expired(d *Draft) bool {
	return s.ttl > 0 && s.now().Sub(d.TouchedAt) > s.ttl
}

// live returns the slot's draft, dropping it first if it has expired.
// Caller holds sl.mu.
func (s *Store) live(sl *slot) *Draft {
	if sl.draft != nil && s.expired(sl.draft) {
		sl.draft = nil
	}
	return sl.draft
}

// Begin starts a fresh draft for flow, replacing any draft the user had.
func (s *Store) Begin(userID, flow, targetEstimateID string) *Draft {
	now := s.now()
	d := &Draft{
		ID:               uuid.New().String(),
		UserID:           userID,
		Flow:             flow,
		Fields:           make(map[string]string),
		TargetEstimateID: targetEstimateID,
		StartedAt:        now,
		TouchedAt:        now,
	}
	s.withSlot(userID, true, func(sl *slot) {
		sl.draft = d
	})
	return d.clone()
}

// Get returns a copy of the user's live draft.
func (s *Store) Get(userID string) (*Draft, bool) {
	var out *Draft
	s.withSlot(userID, false, func(sl *slot) {
		if d := s.live(sl); d != nil {
			out = d.clone()
		}
	})
	return out, out != nil
}

// SetField records a value on the user's draft. Returns false without a draft.
func (s *Store) SetField(userID, name, value string) bool {
	_, err := s.Update(userID, func(d *Draft) error {
		d.Fields[name] = value
		return nil
	})
	return err == nil
}

// Advance moves the user's cursor to the next field.
func (s *Store) Advance(userID string) bool {
	_, err := s.Update(userID, func(d *Draft) error {
		d.FieldIndex++
		return nil
	})
	return err == nil
}

// Update applies fn to a copy of the user's draft under the user's lock and
// stores the copy only if fn returns nil. fn must not block or do I/O.
// Returns the updated copy, ErrNoDraft, or fn's error.
func (s *Store) Update(userID string, fn func(d *Draft) error) (*Draft, error) {
	var out *Draft
	err := ErrNoDraft
	s.withSlot(userID, false, func(sl *slot) {
		cur := s.live(sl)
		if cur == nil {
			return
		}
		next := cur.clone()
		if err = fn(next); err != nil {
			return
		}
		next.TouchedAt = s.now()
		sl.draft = next
		out = next.clone()
	})
	return out, err
}

// Take removes and returns the user's draft only if its ID is draftID.
// Exactly one caller can take a given draft.
func (s *Store) Take(userID, draftID string) (*Draft, bool) {
	var out *Draft
	s.withSlot(userID, false, func(sl *slot) {
		if d := s.live(sl); d != nil && d.ID == draftID {
			out = d
			sl.draft = nil
		}
	})
	return out, out != nil
}

// Clear discards the user's draft, if any.
func (s *Store) Clear(userID string) {
	s.withSlot(userID, false, func(sl *slot) {
		sl.draft = nil
	})
}

// Len returns the number of live drafts.
func (s *Store) Len() int {
	s.mu.Lock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	n := 0
	for _, sl := range slots {
		sl.mu.Lock()
		if s.live(sl) != nil {
			n++
		}
		sl.mu.Unlock()
	}
	return n
}

func (s *Store) janitor() {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Sweep drops expired drafts and frees empty slots. It returns how many
// slots were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sl := range s.slots {
		// TryLock skips slots a caller is using right now; the next sweep
		// picks them up.
		if !sl.mu.TryLock() {
			continue
		}
		if s.live(sl) == nil {
			sl.dead = true
			delete(s.slots, userID)
			removed++
		}
		sl.mu.Unlock()
	}
	return removed
}

// Close stops the janitor. It is safe to call multiple times.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
