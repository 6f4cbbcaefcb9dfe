// Package readings keeps the daemon's recent samples and publish
// outcomes in memory for the status API.
package readings

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danglock/ict-temperature/internal/telemetry"
)

// Entry is one stored sample.
type Entry struct {
	Time    time.Time `json:"time"`
	Celsius float64   `json:"celsius"`
}

// Stats counts loop and publish activity since startup.
type Stats struct {
	Ticks         uint64    `json:"ticks"`
	PublishOK     uint64    `json:"publish_ok"`
	PublishFail   uint64    `json:"publish_fail"`
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

type Store struct {
	mu      sync.RWMutex
	cap     int
	history []Entry
	last    *Entry
	stats   Stats

	subMu sync.Mutex
	subs  map[int64]chan struct{}
	subID atomic.Int64
}

// NewStore keeps up to capacity history entries; capacity 0 keeps only
// the latest sample.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		cap:  capacity,
		subs: map[int64]chan struct{}{},
	}
}

// Add records a fresh sample.
func (s *Store) Add(r telemetry.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Time: r.Timestamp, Celsius: r.Celsius}
	s.last = &e
	s.stats.Ticks++
	if s.cap > 0 {
		s.history = append(s.history, e)
		if len(s.history) > s.cap {
			s.history = s.history[len(s.history)-s.cap:]
		}
	}
	s.notifyLocked()
}

// NotePublish records the outcome of the latest publish attempt.
func (s *Store) NotePublish(res telemetry.PublishResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.OK {
		s.stats.PublishOK++
		s.stats.LastError = ""
	} else {
		s.stats.PublishFail++
		s.stats.LastError = res.Detail
	}
	s.stats.LastAttemptAt = time.Now().UTC()
	s.notifyLocked()
}

// Last returns the most recent sample.
func (s *Store) Last() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Entry{}, false
	}
	return *s.last, true
}

// Recent returns up to n history entries, newest last; n <= 0 means all.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]Entry, len(h))
	copy(out, h)
	return out
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Subscribe emits a signal (coalesced) whenever the store changes,
// until ctx ends.
func (s *Store) Subscribe(ctx context.Context) <-chan struct{} {
	id := s.subID.Add(1)
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subMu.Unlock()
	}()

	return ch
}

func (s *Store) notifyLocked() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// drop (coalesce)
		}
	}
}
