package store

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation points at the chunk of ingested material an answer was drawn
// from. It is produced by the remote RAG service and stored verbatim.
type Citation struct {
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
}

type Message struct {
	ID        string     `json:"id"` // UUID
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"` // assistant messages only
}

// Session is a named, ordered log of exchanges. It is also the unit of
// material grouping: chunks ingested for a session are retrieved only when
// the session is in scope.
type Session struct {
	ID        string    `json:"id"` // UUID
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}
