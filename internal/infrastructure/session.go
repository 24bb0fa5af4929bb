package infrastructure

import (
	"sync"
)

// conversation tracks in-flight pipeline runs for one sender.
type conversation struct {
	mu   sync.Mutex
	refs int
}

// SessionManager serializes pipeline runs per sender so replies to one
// conversation go out in the order the messages arrived.
type SessionManager struct {
	sessions map[string]*conversation
	mu       sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*conversation),
	}
}

// Acquire blocks until key's previous run finishes and returns the release
// func. Sessions are dropped once nobody holds or waits on them.
func (sm *SessionManager) Acquire(key string) (release func()) {
	sm.mu.Lock()
	c, ok := sm.sessions[key]
	if !ok {
		c = &conversation{}
		sm.sessions[key] = c
	}
	c.refs++
	sm.mu.Unlock()

	c.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Unlock()
			sm.mu.Lock()
			c.refs--
			if c.refs == 0 {
				delete(sm.sessions, key)
			}
			sm.mu.Unlock()
		})
	}
}

// Active returns the number of senders with a run in flight or queued.
func (sm *SessionManager) Active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}
