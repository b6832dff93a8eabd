package bot

import (
	"sync"
	"time"

	"github.com/imelnik/taskdesk/internal/models"
)

// State tags where a user is within a multi-step flow. The empty state
// means no flow is in progress.
type State string

const (
	StateNone State = ""

	// Admin task-creation flow, in order.
	StateAddingTitle       State = "adding_title"
	StateAddingDescription State = "adding_description"
	StateAddingPriority    State = "adding_priority"
	StateAddingAssignee    State = "adding_assignee"

	// Single-step flow: the next free-text message is "<chat id> <name>".
	StateAddingProgrammer State = "adding_programmer"

	// Programmer navigation states. These are button-driven; free text
	// received in them falls back to the home menu.
	StateProgrammerMenu     State = "programmer_menu"
	StateProgrammerFilter   State = "programmer_filter"
	StateProgrammerTaskList State = "programmer_task_list"
)

// Session is the transient per-user record of an in-progress flow. The
// accumulator fields fill in as the admin task-creation flow advances;
// LastMessageID tracks the bot's previous message in the programmer flow
// so it can be deleted and replaced.
type Session struct {
	State         State
	Title         string
	Description   string
	Priority      models.Priority
	LastMessageID int

	touched time.Time
}

// SessionStore holds per-user sessions in memory. It is injected into the
// dispatcher rather than held as ambient state; sessions are created
// lazily, cleared explicitly when a flow completes, and purged after a
// TTL so abandoned flows do not linger until process restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Get returns the user's session and whether one exists.
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Set stores the user's session and refreshes its idle clock.
func (s *SessionStore) Set(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.touched = s.now()
	s.sessions[userID] = sess
}

// Clear removes the user's session entirely.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// PurgeIdle drops sessions untouched for longer than ttl and returns how
// many were removed.
func (s *SessionStore) PurgeIdle(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	purged := 0
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}
