// Package ragclient talks to the remote RAG service that owns material
// extraction, chunking, embedding and answer synthesis. This service only
// consumes its HTTP API; all retrieval semantics live on the other side.
package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studydesk.io/rag-companion/internal/store"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// IngestItem is one piece of material to ingest. Type is "pdf", "text" or
// "youtube"; which of the payload fields is required depends on the type.
type IngestItem struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Text       string `json:"text,omitempty"`
	DataBase64 string `json:"dataBase64,omitempty"`
	URL        string `json:"url,omitempty"`
}

// HistoryTurn is one prior exchange entry forwarded for conversational
// context.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ingestRequest struct {
	Items     []IngestItem `json:"items"`
	SessionID string       `json:"sessionId,omitempty"`
}

type askRequest struct {
	Question     string        `json:"question"`
	SessionIDs   []string      `json:"sessionIds,omitempty"`
	TopK         int           `json:"topK,omitempty"`
	Conversation []HistoryTurn `json:"conversation,omitempty"`
}

type AskResponse struct {
	Answer    string           `json:"answer"`
	Citations []store.Citation `json:"citations"`
}

// Ingest submits material tagged with the given session id.
func (c *Client) Ingest(ctx context.Context, items []IngestItem, sessionID string) error {
	return c.postJSON(ctx, "/api/ingest", ingestRequest{Items: items, SessionID: sessionID}, nil)
}

// Ask sends a question scoped to the given session ids. An empty sessionIDs
// slice omits the scope field entirely, which the service treats as "search
// all material".
func (c *Client) Ask(ctx context.Context, question string, sessionIDs []string, topK int, conversation []HistoryTurn) (*AskResponse, error) {
	var resp AskResponse
	req := askRequest{
		Question:     question,
		SessionIDs:   sessionIDs,
		TopK:         topK,
		Conversation: conversation,
	}
	if err := c.postJSON(ctx, "/api/ask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMaterials asks the service to drop all chunks tagged with the
// session id.
func (c *Client) DeleteMaterials(ctx context.Context, sessionID string) error {
	endpoint := c.BaseURL + "/api/materials/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, nil)
}

// Health pings the service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &RemoteError{Kind: RemoteUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{
			Kind:       RemoteRejected,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Kind: RemoteRejected, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
