package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studydesk.io/rag-companion/internal/logging"
	"studydesk.io/rag-companion/internal/store"
)

const (
	titleModelName = "gemini-1.5-flash-latest"

	titleSystemInstruction = "You are a helpful assistant that generates concise titles for study sessions. " +
		"The title should be 3-5 words maximum. Just return the title itself, nothing else."
)

// TitleService replaces the time-derived default title of implicitly
// created sessions with an LLM-generated one. Optional: when no API key is
// configured the orchestrator runs without it and defaults stand.
type TitleService struct {
	store  *store.SessionStore
	client *genai.Client
}

func NewTitleService(ctx context.Context, st *store.SessionStore, apiKey string) (*TitleService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &TitleService{store: st, client: client}, nil
}

func (s *TitleService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logging.L.Warnf("Error closing GenAI client: %v", err)
		}
	}
}

// GenerateAndSaveTitle is fire-and-forget: a failed title generation leaves
// the default title in place.
func (s *TitleService) GenerateAndSaveTitle(sessionID, basisContent string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := s.generateTitle(ctx, basisContent)
	if err != nil {
		logging.L.Warnf("Failed to generate title for session %s: %v", sessionID, err)
		return
	}

	if err := s.store.UpdateSessionTitle(sessionID, title); err != nil {
		logging.L.Warnf("Failed to save generated title %q for session %s: %v", title, sessionID, err)
		return
	}
	logging.L.Infof("Generated title %q for session %s", title, sessionID)
}

func (s *TitleService) generateTitle(ctx context.Context, basisContent string) (string, error) {
	model := s.client.GenerativeModel(titleModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(titleSystemInstruction)},
	}

	temp := float32(0.3)
	maxTokens := int32(20)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	prompt := fmt.Sprintf("Generate a very concise title (3-5 words maximum) for a study session that starts with: %q.", basisContent)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini title generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("LLM did not generate a title (empty response)")
	}

	var titleText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			titleText.WriteString(string(txt))
		}
	}

	if titleText.Len() == 0 {
		return "", fmt.Errorf("LLM generated an empty title string")
	}

	return strings.Trim(titleText.String(), "\"'\n\r\t ."), nil
}
