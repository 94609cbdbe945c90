package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studydesk.io/rag-companion/internal/logging"
	"studydesk.io/rag-companion/internal/ragclient"
	"studydesk.io/rag-companion/internal/store"
	"studydesk.io/rag-companion/internal/telemetry"
)

// MaterialService bridges material ingestion and deletion to the session
// store and the remote RAG service.
type MaterialService struct {
	store *store.SessionStore
	rag   RAGService
}

func NewMaterialService(st *store.SessionStore, rag RAGService) *MaterialService {
	return &MaterialService{store: st, rag: rag}
}

// PrepareIngestSession always starts a fresh session. Chunks ingested for
// new material must never be merged into an earlier session's retrieval
// scope, so the current session is never reused here.
func (s *MaterialService) PrepareIngestSession(candidateTitle string) (string, error) {
	title := strings.TrimSpace(candidateTitle)
	if title == "" {
		title = "Material " + time.Now().Format("Jan 2, 2006 15:04")
	}
	return s.store.CreateSession(title)
}

// Ingest validates the items, creates the session that will own them and
// submits them to the remote service tagged with the new session id.
//
// A remote failure aborts the operation and is reported; the session that
// was created stays behind, empty, so the caller can see what happened and
// either retry the ingest or delete it.
func (s *MaterialService) Ingest(ctx context.Context, candidateTitle string, items []ragclient.IngestItem) (string, error) {
	if err := validateIngestItems(items); err != nil {
		return "", err
	}

	title := strings.TrimSpace(candidateTitle)
	if title == "" {
		title = deriveTitle(items[0])
	}

	sessionID, err := s.PrepareIngestSession(title)
	if err != nil {
		return "", err
	}

	if err := s.rag.Ingest(ctx, items, sessionID); err != nil {
		telemetry.IngestsTotal.WithLabelValues("failed").Inc()
		logging.L.Errorf("Ingest of %d item(s) into session %s failed: %v", len(items), sessionID, err)
		return sessionID, fmt.Errorf("remote ingest failed: %w", err)
	}

	telemetry.IngestsTotal.WithLabelValues("ok").Inc()
	logging.L.Infof("Ingested %d item(s) into session %s", len(items), sessionID)
	return sessionID, nil
}

// DeleteResult reports the outcome of a material deletion. RemoteWarning is
// non-nil when the remote delete failed; the local session is gone either
// way.
type DeleteResult struct {
	RemoteWarning error
}

// DeleteMaterial removes the remote material best-effort and the local
// session unconditionally. The user asked for this material to disappear
// from their view; an unreachable backend must not veto that, so a remote
// failure degrades to a warning.
func (s *MaterialService) DeleteMaterial(ctx context.Context, sessionID string) (*DeleteResult, error) {
	result := &DeleteResult{}

	if err := s.rag.DeleteMaterials(ctx, sessionID); err != nil {
		telemetry.RemoteDeleteFailuresTotal.Inc()
		logging.L.Warnf("Remote material delete failed for session %s, removing locally anyway: %v", sessionID, err)
		result.RemoteWarning = err
	}

	if err := s.store.DeleteSession(sessionID); err != nil {
		return result, err
	}
	telemetry.SessionsDeletedTotal.Inc()
	return result, nil
}

func validateIngestItems(items []ragclient.IngestItem) error {
	if len(items) == 0 {
		return &ValidationError{Reason: "no items provided"}
	}
	for i, item := range items {
		switch item.Type {
		case "pdf":
			if item.DataBase64 == "" {
				return &ValidationError{Reason: fmt.Sprintf("item %d: pdf missing dataBase64", i)}
			}
		case "text":
			if strings.TrimSpace(item.Text) == "" {
				return &ValidationError{Reason: fmt.Sprintf("item %d: text item has no text", i)}
			}
		case "youtube":
			if item.URL == "" {
				return &ValidationError{Reason: fmt.Sprintf("item %d: youtube missing url", i)}
			}
		default:
			return &ValidationError{Reason: fmt.Sprintf("item %d: unsupported type: %s", i, item.Type)}
		}
	}
	return nil
}

func deriveTitle(item ragclient.IngestItem) string {
	if item.Name != "" {
		return item.Name
	}
	if item.URL != "" {
		return item.URL
	}
	return item.Type
}
