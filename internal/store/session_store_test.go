package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SessionStore, *MemoryStateStore) {
	t.Helper()
	backend := NewMemoryStateStore()
	s, err := NewSessionStore(backend)
	require.NoError(t, err)
	return s, backend
}

func TestCreateSessionSetsCurrentAndOrdersNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	id1, err := s.CreateSession("Topic A")
	require.NoError(t, err)
	id2, err := s.CreateSession("Topic B")
	require.NoError(t, err)

	assert.Equal(t, id2, s.CurrentSessionID())

	sessions := s.ListSessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, id2, sessions[0].ID)
	assert.Equal(t, id1, sessions[1].ID)
	assert.Equal(t, "Topic B", sessions[0].Title)
}

func TestAppendMessagePreservesInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		_, err := s.AppendMessage(id, RoleUser, c, nil)
		require.NoError(t, err)
	}

	session := s.GetSession(id)
	require.NotNil(t, session)
	require.Len(t, session.Messages, 3)
	for i, c := range contents {
		assert.Equal(t, c, session.Messages[i].Content)
	}
}

func TestAppendMessageUnknownSession(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AppendMessage("nope", RoleUser, "hi", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, s.ListSessions())
}

func TestAppendMessageToCurrentCreatesExactlyOneSession(t *testing.T) {
	s, _ := newTestStore(t)

	sessionID, messageID, err := s.AppendMessageToCurrent(RoleUser, "What is X?", nil)
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	sessions := s.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].ID)
	assert.True(t, strings.HasPrefix(sessions[0].Title, "Session "))
	require.Len(t, sessions[0].Messages, 1)
	assert.Equal(t, "What is X?", sessions[0].Messages[0].Content)
}

func TestAppendMessageToCurrentReusesExistingCurrent(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)

	sessionID, _, err := s.AppendMessageToCurrent(RoleUser, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, id, sessionID)
	assert.Len(t, s.ListSessions(), 1)
}

func TestAppendMessageToCurrentWithDanglingPointer(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SetCurrentSession("long-gone"))
	assert.Nil(t, s.GetCurrentSession())

	sessionID, _, err := s.AppendMessageToCurrent(RoleUser, "hello", nil)
	require.NoError(t, err)
	assert.NotEqual(t, "long-gone", sessionID)
	assert.Len(t, s.ListSessions(), 1)
}

func TestAssistantMessageKeepsCitationOrder(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)

	citations := []Citation{
		{Title: "doc1", ChunkIndex: 2, Content: "b"},
		{Title: "doc1", ChunkIndex: 0, Content: "a"},
	}
	_, err = s.AppendMessage(id, RoleAssistant, "X is...", citations)
	require.NoError(t, err)

	session := s.GetSession(id)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, citations, session.Messages[0].Citations)
}

func TestDeleteSessionRemovesAndClearsCurrent(t *testing.T) {
	s, _ := newTestStore(t)

	id1, err := s.CreateSession("Topic A")
	require.NoError(t, err)
	id2, err := s.CreateSession("Topic B")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(id2))

	sessions := s.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, id1, sessions[0].ID)
	assert.Empty(t, s.CurrentSessionID())

	// Deleting again, or deleting an unknown id, is a no-op
	require.NoError(t, s.DeleteSession(id2))
	require.NoError(t, s.DeleteSession("nope"))
	assert.Len(t, s.ListSessions(), 1)
}

func TestDeleteSelectedSessionClearsSelection(t *testing.T) {
	s, _ := newTestStore(t)

	id1, err := s.CreateSession("Topic A")
	require.NoError(t, err)
	id2, err := s.CreateSession("Topic B")
	require.NoError(t, err)

	require.NoError(t, s.SetSelection([]string{id1, id2}))
	require.NoError(t, s.DeleteSession(id1))

	assert.Empty(t, s.Selection())
}

func TestSelectionRepointsCurrent(t *testing.T) {
	s, _ := newTestStore(t)

	id1, err := s.CreateSession("Topic A")
	require.NoError(t, err)
	_, err = s.CreateSession("Topic B")
	require.NoError(t, err)

	require.NoError(t, s.SetSelection([]string{id1}))
	assert.Equal(t, id1, s.CurrentSessionID())
	assert.Equal(t, []string{id1}, s.Selection())

	// Clearing the selection keeps the append target in place
	require.NoError(t, s.SetSelection(nil))
	assert.Empty(t, s.Selection())
	assert.Equal(t, id1, s.CurrentSessionID())
}

func TestSelectionDeduplicates(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)

	require.NoError(t, s.SetSelection([]string{id, id}))
	assert.Equal(t, []string{id}, s.Selection())
}

func TestPersistenceFailureLeavesStateUntouched(t *testing.T) {
	s, backend := newTestStore(t)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)

	backend.SaveErr = errors.New("disk full")

	_, err = s.CreateSession("Topic B")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	_, err = s.AppendMessage(id, RoleUser, "hi", nil)
	require.ErrorAs(t, err, &perr)

	sessions := s.ListSessions()
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Messages)
	assert.Equal(t, id, s.CurrentSessionID())

	// The store keeps working once the backend recovers
	backend.SaveErr = nil
	_, err = s.AppendMessage(id, RoleUser, "hi again", nil)
	require.NoError(t, err)
}

func TestStateSurvivesReload(t *testing.T) {
	backend := NewMemoryStateStore()
	s, err := NewSessionStore(backend)
	require.NoError(t, err)

	id, err := s.CreateSession("Topic A")
	require.NoError(t, err)
	_, err = s.AppendMessage(id, RoleUser, "What is X?", nil)
	require.NoError(t, err)
	_, err = s.AppendMessage(id, RoleAssistant, "X is...", []Citation{{Title: "doc1", ChunkIndex: 0, Content: "..."}})
	require.NoError(t, err)

	reloaded, err := NewSessionStore(backend)
	require.NoError(t, err)

	sessions := reloaded.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, RoleUser, sessions[0].Messages[0].Role)
	assert.Equal(t, RoleAssistant, sessions[0].Messages[1].Role)
	require.Len(t, sessions[0].Messages[1].Citations, 1)
	assert.Equal(t, id, reloaded.CurrentSessionID())

	// Selection is view state and resets to global scope
	assert.Empty(t, reloaded.Selection())
}

func TestUpdateSessionTitle(t *testing.T) {
	s, _ := newTestStore(t)

	id, err := s.CreateSession("Session Jan 1, 2026 10:00")
	require.NoError(t, err)

	require.NoError(t, s.UpdateSessionTitle(id, "Photosynthesis Basics"))
	assert.Equal(t, "Photosynthesis Basics", s.GetSession(id).Title)

	err = s.UpdateSessionTitle("nope", "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCorruptStateIsRejected(t *testing.T) {
	backend := NewMemoryStateStore()
	require.NoError(t, backend.Save([]byte("not json")))

	_, err := NewSessionStore(backend)
	require.Error(t, err)
}

func TestFileStateStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/state.json"
	backend, err := NewFileStateStore(path)
	require.NoError(t, err)

	data, err := backend.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, backend.Save([]byte(`{"sessions":[]}`)))
	data, err = backend.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessions":[]}`, string(data))
}
