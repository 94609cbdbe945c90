package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// persistedState is the snapshot written to the StateStore on every
// mutation: the session collection and the current-session pointer, always
// saved together as one unit.
type persistedState struct {
	Sessions  []Session `json:"sessions"`
	CurrentID string    `json:"currentSessionId,omitempty"`
}

// SessionStore is the single authority over sessions, their messages, the
// current-session pointer and the retrieval selection. Every mutation is
// persisted before the in-memory view is updated, so callers never observe
// state that did not make it to disk.
//
// The selection is view state and intentionally not persisted; it resets to
// empty (global scope) on restart.
type SessionStore struct {
	mu        sync.Mutex
	backend   StateStore
	sessions  []Session // newest first
	currentID string
	selection []string
}

func NewSessionStore(backend StateStore) (*SessionStore, error) {
	data, err := backend.Load()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	s := &SessionStore{backend: backend}
	if len(data) > 0 {
		var state persistedState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("corrupt session state: %w", err)
		}
		s.sessions = state.Sessions
		s.currentID = state.CurrentID
	}
	return s, nil
}

// persistLocked writes the candidate state to the backend and commits it to
// the in-memory view only on success. Callers must hold s.mu.
func (s *SessionStore) persistLocked(op string, sessions []Session, currentID string) error {
	data, err := json.Marshal(persistedState{Sessions: sessions, CurrentID: currentID})
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	if err := s.backend.Save(data); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	s.sessions = sessions
	s.currentID = currentID
	return nil
}

// CreateSession allocates a fresh session, inserts it at the head of the
// collection and makes it the current session.
func (s *SessionStore) CreateSession(title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSessionLocked(title)
}

func (s *SessionStore) createSessionLocked(title string) (string, error) {
	session := Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		Messages:  []Message{},
	}

	next := make([]Session, 0, len(s.sessions)+1)
	next = append(next, session)
	next = append(next, s.sessions...)

	if err := s.persistLocked("create session", next, session.ID); err != nil {
		return "", err
	}
	return session.ID, nil
}

// AppendMessage appends a message to the given session. Messages are
// append-only; there is no edit or reorder path.
func (s *SessionStore) AppendMessage(sessionID string, role Role, content string, citations []Citation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMessageLocked(sessionID, role, content, citations)
}

func (s *SessionStore) appendMessageLocked(sessionID string, role Role, content string, citations []Citation) (string, error) {
	idx := s.indexOfLocked(sessionID)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Citations: citations,
	}

	next := make([]Session, len(s.sessions))
	copy(next, s.sessions)
	messages := make([]Message, 0, len(next[idx].Messages)+1)
	messages = append(messages, next[idx].Messages...)
	next[idx].Messages = append(messages, msg)

	if err := s.persistLocked("append message", next, s.currentID); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// AppendMessageToCurrent appends to the current session, creating one with
// a time-derived title first when no current session exists. A message can
// therefore never end up without a session.
func (s *SessionStore) AppendMessageToCurrent(role Role, content string, citations []Citation) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(s.currentID) < 0 {
		if _, err := s.createSessionLocked(defaultSessionTitle(time.Now())); err != nil {
			return "", "", err
		}
	}

	sessionID := s.currentID
	messageID, err := s.appendMessageLocked(sessionID, role, content, citations)
	if err != nil {
		return "", "", err
	}
	return sessionID, messageID, nil
}

func defaultSessionTitle(t time.Time) string {
	return "Session " + t.Format("Jan 2, 2006 15:04")
}

// SetCurrentSession repoints the append target. The id is not validated; a
// stale or empty id simply makes GetCurrentSession return nil.
func (s *SessionStore) SetCurrentSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked("set current session", s.sessions, id)
}

// GetCurrentSession returns a copy of the current session, or nil when the
// pointer is unset or dangling.
func (s *SessionStore) GetCurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.currentID)
	if idx < 0 {
		return nil
	}
	return copySession(s.sessions[idx])
}

// GetSession returns a copy of the session with the given id, or nil.
func (s *SessionStore) GetSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil
	}
	return copySession(s.sessions[idx])
}

// DeleteSession removes the session and its messages. Deleting an unknown
// id is a no-op. If the session was current or selected, the pointer and
// the whole selection are cleared.
func (s *SessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	wasSelected := s.isSelectedLocked(id)
	wasCurrent := s.currentID == id
	if idx < 0 {
		if wasSelected {
			s.selection = nil
		}
		return nil
	}

	next := make([]Session, 0, len(s.sessions)-1)
	next = append(next, s.sessions[:idx]...)
	next = append(next, s.sessions[idx+1:]...)

	currentID := s.currentID
	if wasCurrent {
		currentID = ""
	}

	if err := s.persistLocked("delete session", next, currentID); err != nil {
		return err
	}
	if wasSelected || wasCurrent {
		s.selection = nil
	}
	return nil
}

// UpdateSessionTitle renames a session.
func (s *SessionStore) UpdateSessionTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	next := make([]Session, len(s.sessions))
	copy(next, s.sessions)
	next[idx].Title = title

	return s.persistLocked("update session title", next, s.currentID)
}

// ListSessions returns copies of all sessions, most recent first.
func (s *SessionStore) ListSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, *copySession(session))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SetSelection replaces the retrieval scope for the next question. A
// non-empty selection always contains the current session: when the current
// pointer falls outside the new scope it is repointed to the first id, so
// the next answer lands in a selected session.
func (s *SessionStore) SetSelection(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	selection := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selection = append(selection, id)
	}

	if len(selection) > 0 {
		if _, ok := seen[s.currentID]; !ok {
			if err := s.persistLocked("set current session", s.sessions, selection[0]); err != nil {
				return err
			}
		}
	}
	s.selection = selection
	return nil
}

// Selection returns the ids currently in scope. Empty means global scope.
func (s *SessionStore) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.selection))
	copy(out, s.selection)
	return out
}

// CurrentSessionID returns the raw pointer value, which may be empty or
// dangling.
func (s *SessionStore) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

func (s *SessionStore) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *SessionStore) isSelectedLocked(id string) bool {
	for _, sel := range s.selection {
		if sel == id {
			return true
		}
	}
	return false
}

func copySession(session Session) *Session {
	out := session
	out.Messages = make([]Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	return &out
}
