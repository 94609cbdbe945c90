package core

import (
	"context"

	"studydesk.io/rag-companion/internal/ragclient"
)

// RAGService is the slice of the remote RAG API the core depends on,
// implemented by *ragclient.Client and by fakes in tests.
type RAGService interface {
	Ingest(ctx context.Context, items []ragclient.IngestItem, sessionID string) error
	Ask(ctx context.Context, question string, sessionIDs []string, topK int, conversation []ragclient.HistoryTurn) (*ragclient.AskResponse, error)
	DeleteMaterials(ctx context.Context, sessionID string) error
}
