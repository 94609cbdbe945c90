package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"studydesk.io/rag-companion/internal/auth"
	"studydesk.io/rag-companion/internal/config"
	"studydesk.io/rag-companion/internal/core"
	"studydesk.io/rag-companion/internal/logging"
	"studydesk.io/rag-companion/internal/ragclient"
	"studydesk.io/rag-companion/internal/store"
)

type APIHandler struct {
	store        *store.SessionStore
	materials    *core.MaterialService
	orchestrator *core.QueryOrchestrator
}

func NewAPIHandler(st *store.SessionStore, materials *core.MaterialService, orchestrator *core.QueryOrchestrator) *APIHandler {
	return &APIHandler{store: st, materials: materials, orchestrator: orchestrator}
}

// AuthMiddleware validates a bearer token when AUTH_SECRET is configured.
// Without a secret the API is open, which is the expected mode for a local
// single-user deployment.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.AppConfig.AuthSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := auth.ValidateJWT(tokenString); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type LoginRequest struct {
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if config.AppConfig.AuthSecret == "" || config.AppConfig.AuthPasswordHash == "" {
		http.Error(w, "Login is not configured", http.StatusNotImplemented)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !auth.CheckPasswordHash(req.Password, config.AppConfig.AuthPasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT("owner")
	if err != nil {
		logging.L.Errorf("Error generating JWT: %v", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	sessionID, err := h.store.CreateSession(strings.TrimSpace(req.Title))
	if err != nil {
		logging.L.Errorf("Error creating session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.store.GetSession(sessionID))
}

type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.ListSessions()
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			CreatedAt:    s.CreatedAt,
			MessageCount: len(s.Messages),
		})
	}
	json.NewEncoder(w).Encode(summaries)
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session := h.store.GetSession(sessionID)
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(session)
}

type DeleteSessionResponse struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.materials.DeleteMaterial(r.Context(), sessionID)
	if err != nil {
		logging.L.Errorf("Error deleting session %s: %v", sessionID, err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	resp := DeleteSessionResponse{Deleted: true}
	if result.RemoteWarning != nil {
		resp.Warning = "remote material delete failed: " + result.RemoteWarning.Error()
	}
	json.NewEncoder(w).Encode(resp)
}

type SelectionResponse struct {
	SessionIDs       []string `json:"sessionIds"`
	CurrentSessionID string   `json:"currentSessionId,omitempty"`
}

func (h *APIHandler) GetSelectionHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(SelectionResponse{
		SessionIDs:       h.store.Selection(),
		CurrentSessionID: h.store.CurrentSessionID(),
	})
}

type SetSelectionRequest struct {
	SessionIDs []string `json:"sessionIds"`
}

func (h *APIHandler) SetSelectionHandler(w http.ResponseWriter, r *http.Request) {
	var req SetSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.SetSelection(req.SessionIDs); err != nil {
		logging.L.Errorf("Error setting selection: %v", err)
		http.Error(w, "Failed to set selection", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(SelectionResponse{
		SessionIDs:       h.store.Selection(),
		CurrentSessionID: h.store.CurrentSessionID(),
	})
}

type IngestRequest struct {
	Title string                 `json:"title"`
	Items []ragclient.IngestItem `json:"items"`
}

type IngestResponse struct {
	SessionID string `json:"sessionId"`
}

func (h *APIHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, err := h.materials.Ingest(r.Context(), req.Title, req.Items)
	if err != nil {
		var validationErr *core.ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Reason, http.StatusBadRequest)
			return
		}
		// The session was created before the remote call; report it so the
		// caller can retry or delete it.
		logging.L.Errorf("Ingest failed: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{
			"error":     "Ingestion failed: " + err.Error(),
			"sessionId": sessionID,
		})
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(IngestResponse{SessionID: sessionID})
}

type AskRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.orchestrator.Ask(r.Context(), req.Question)
	if err != nil {
		var validationErr *core.ValidationError
		switch {
		case errors.As(err, &validationErr):
			http.Error(w, validationErr.Reason, http.StatusBadRequest)
		case errors.Is(err, core.ErrQueryInFlight):
			http.Error(w, "Another question is still being answered", http.StatusConflict)
		default:
			logging.L.Errorf("Error answering question: %v", err)
			http.Error(w, "Failed to process question", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(result)
}
