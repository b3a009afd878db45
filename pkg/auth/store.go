package auth

import "sync"

// Store holds the single active credential of a client
type Store struct {
	mu   sync.RWMutex
	cred Credential
	gen  uint64
}

// NewStore creates a store holding cred
func NewStore(cred Credential) *Store {
	return &Store{cred: cred}
}

// Load returns the active credential
func (s *Store) Load() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Update atomically replaces the active credential; a nil cred is ignored
// and reported as false
func (s *Store) Update(cred Credential) bool {
	if cred == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.gen++
	return true
}

// snapshot returns the active credential and its generation
func (s *Store) snapshot() (Credential, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.gen
}

// replace swaps in cred only if nothing was stored since generation gen
func (s *Store) replace(gen uint64, cred Credential) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.cred = cred
	s.gen++
	return true
}
