package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Chat roles understood by Gemini.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one prior message in a conversation.
type ChatTurn struct {
	Role string
	Text string
}

// GeminiClient generates chat replies with a Gemini text model.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the SDK client. A missing key is logged, not fatal:
// calls are still attempted and fail upstream.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		log.Error().Msg("ERROR: GEMINI_API_KEY environment variable is not set.")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// GenerateReply sends message with the given system instruction and prior
// turns and returns the concatenated text of the first candidate.
func (g *GeminiClient) GenerateReply(ctx context.Context, systemPrompt string, history []ChatTurn, message string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	cs := model.StartChat()
	for _, turn := range history {
		cs.History = append(cs.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply.WriteString(string(text))
		}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("unexpected response format (no text parts)")
	}
	return reply.String(), nil
}
