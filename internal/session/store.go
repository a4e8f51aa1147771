package session

import "sync"

// Store owns the sessions of all chats.
//
// Callers mutate the *Session returned by GetOrCreate while holding the
// chat's Lock.
type Store interface {
	// GetOrCreate returns the chat's session, creating a fresh one if needed.
	GetOrCreate(chatID int64) *Session
	// Reset restores the initial values in place, keeping the entry.
	Reset(chatID int64)
	// Remove deletes the chat's entry.
	Remove(chatID int64)
	// Lock serialises work on one chat until the returned func is called.
	Lock(chatID int64) (unlock func())
	// Len reports the number of tracked chats.
	Len() int
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewMemoryStore returns a process-local Store. Entries live until removed.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (m *memoryStore) GetOrCreate(chatID int64) *Session {
	m.mu.RLock()
	sess, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess
	}
	sess = &Session{}
	m.sessions[chatID] = sess
	return sess
}

func (m *memoryStore) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		m.sessions[chatID] = &Session{}
		return
	}
	sess.reset()
}

func (m *memoryStore) Remove(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

func (m *memoryStore) Lock(chatID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[chatID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
