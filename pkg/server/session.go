package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/quizline/pkg/model"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

var errSessionClosed = errors.New("server: session closed")

// Session is the server-side state of one connection.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	conn    transport.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	username string
	password string
	status   model.SessionStatus
	owner    bool

	// badFrames is only touched by the session's reader goroutine.
	badFrames int

	closeOnce sync.Once
}

func newSession(conn transport.Conn) *Session {
	return &Session{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr(),
		ConnectedAt: time.Now(),
		conn:        conn,
		status:      model.SessionPending,
	}
}

// ShortID is the first block of the id, used in logs and default names.
func (s *Session) ShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Status() model.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsOwner reports whether the session was the first to join its current game.
func (s *Session) IsOwner() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Session) setOwner(v bool) {
	s.mu.Lock()
	s.owner = v
	s.mu.Unlock()
}

// promote records the credentials and moves Pending → Active.
func (s *Session) promote(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransition(model.SessionActive) {
		return false
	}
	s.username = username
	s.password = password
	s.status = model.SessionActive
	return true
}

// markClosed moves the session to Closed and returns the previous status.
// ok is false when it was already closed.
func (s *Session) markClosed() (prev model.SessionStatus, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.status
	if !s.status.CanTransition(model.SessionClosed) {
		return prev, false
	}
	s.status = model.SessionClosed
	s.owner = false
	return prev, true
}

// Send writes one sealed line. Writes from different goroutines are serialized.
func (s *Session) Send(line string) error {
	if s.Status() == model.SessionClosed {
		return errSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteLine(line)
}

// Close releases the transport handle. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}

// SessionManager indexes live sessions by id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Create registers a Pending session for a freshly accepted connection.
func (sm *SessionManager) Create(conn transport.Conn) *Session {
	sess := newSession(conn)
	sm.mu.Lock()
	sm.sessions[sess.ID] = sess
	sm.mu.Unlock()
	return sess
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Remove removes a session.
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// All returns all live sessions (snapshot).
func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	result := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		result = append(result, s)
	}
	return result
}

// Active returns the sessions that completed the handshake.
func (sm *SessionManager) Active() []*Session {
	all := sm.All()
	result := all[:0]
	for _, s := range all {
		if s.Status() == model.SessionActive {
			result = append(result, s)
		}
	}
	return result
}
