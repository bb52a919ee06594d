package session

import (
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Store is the process-lifetime session registry. Sessions are never evicted.
type Store struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

func NewStore() *Store {
	return &Store{sessions: map[Key]*Session{}}
}

// put registers s, replacing any session with the same key.
func (st *Store) put(s *Session) {
	st.mu.Lock()
	st.sessions[s.key] = s
	st.mu.Unlock()
}

func (st *Store) Get(key Key) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[key]
	st.mu.RUnlock()
	if !ok {
		return nil, common.NewAppError("SESSION_NOT_FOUND", "Session not found or expired.", common.ErrNotFound)
	}
	return s, nil
}

func (st *Store) Snapshot(key Key) (Snapshot, error) {
	s, err := st.Get(key)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
