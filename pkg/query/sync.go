package query

import (
	"sync"
	"time"

	"github.com/alumninet/directory-finder/pkg/types"
)

// History is the address bar. Only Replace exists on purpose, pushing
// every keystroke would turn back/forward into a keystroke replay.
type History interface {
	Replace(query string)
}

// Synchronizer owns the criteria -> address bar direction. Writes are
// debounced so a burst of typing collapses into one history entry.
type Synchronizer struct {
	history  History
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	dirty   bool
}

func NewSynchronizer(h History, debounce time.Duration) *Synchronizer {
	return &Synchronizer{history: h, debounce: debounce}
}

// CriteriaChanged schedules a replace of the address bar with the
// canonical query string for c.
func (s *Synchronizer) CriteriaChanged(c types.FilterCriteria) {
	qs := EncodeString(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = qs
	s.dirty = true
	if s.debounce <= 0 {
		s.flushLocked()
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
	} else {
		s.timer.Reset(s.debounce)
	}
}

// Flush writes any pending state immediately, used on unmount and
// before a navigation the screen initiates itself.
func (s *Synchronizer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Synchronizer) flush() {
	s.Flush()
}

func (s *Synchronizer) flushLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.dirty {
		return
	}
	s.dirty = false
	s.history.Replace(s.pending)
}

// Restore handles the other direction: an incoming URL (initial load or
// back/forward) becomes criteria. Any pending write is dropped, the
// navigation supersedes it.
func (s *Synchronizer) Restore(qs string, defaults types.FilterCriteria) types.FilterCriteria {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.dirty = false
	s.mu.Unlock()
	return ParseString(qs, defaults)
}
