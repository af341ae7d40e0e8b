package flow

import "sync"

// Capture tracks which order and photo category a master is currently
// uploading for.
type Capture struct {
	OrderID  int64
	Category string
}

// Store keeps active drafts and photo captures keyed by user id. All
// access is mutex-guarded; sessions never expire on their own.
type Store struct {
	mu       sync.RWMutex
	drafts   map[int64]*Draft
	captures map[int64]Capture
}

// NewStore builds an empty session store.
func NewStore() *Store {
	return &Store{
		drafts:   make(map[int64]*Draft),
		captures: make(map[int64]Capture),
	}
}

// Start opens a fresh draft for the user, discarding any previous one.
// The returned draft is a snapshot; mutate through Update.
func (s *Store) Start(userID int64) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = &Draft{Step: StepCity}
	cp := *s.drafts[userID]
	return &cp
}

// Draft returns a snapshot of the user's active draft, if any. Handing out
// a copy keeps readers off the stored draft while Update mutates it.
func (s *Store) Draft(userID int64) (*Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[userID]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

// Update mutates the user's draft under the store lock. No-op without an
// active draft.
func (s *Store) Update(userID int64, fn func(*Draft)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	if !ok {
		return false
	}
	fn(d)
	return true
}

// Clear discards the user's draft.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}

// SetCapture opens a photo capture for the user.
func (s *Store) SetCapture(userID int64, c Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[userID] = c
}

// Capture returns the user's active photo capture, if any.
func (s *Store) Capture(userID int64) (Capture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.captures[userID]
	return c, ok
}

// ClearCapture closes the user's photo capture.
func (s *Store) ClearCapture(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captures, userID)
}

// Active reports whether the user has an open draft or photo capture.
// The router consults this to decide whether free-form input belongs to a
// session.
func (s *Store) Active(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.drafts[userID]; ok {
		return true
	}
	_, ok := s.captures[userID]
	return ok
}
