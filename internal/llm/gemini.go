package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/agrilab/agrichat/internal/models"
)

// Gemini completes prompts against the Gemini generateContent API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGemini creates a Gemini completer. model and timeout fall back to
// gemini-1.5-flash and 30s when zero-valued.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// Complete sends the assembled prompt and returns the model's reply. Transport
// failures and empty responses degrade to descriptive text with a nil error so
// the conversation keeps its continuity.
func (g *Gemini) Complete(ctx context.Context, history []models.Message, snippets []Snippet, threadDocs []*models.DocumentInfo) (string, error) {
	prompt := BuildPrompt(history, snippets, threadDocs)

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(1500)
	model.SetTopP(0.8)
	model.SetTopK(10)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Warn("gemini request failed", zap.Error(err))
		return fmt.Sprintf("Error communicating with AI service: %v", err), nil
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "No response from Gemini API", nil
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		}
	}
	if reply.Len() == 0 {
		return "No response from Gemini API", nil
	}
	return reply.String(), nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
