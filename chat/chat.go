// Package chat answers maternity-rights questions with a generative model
// constrained to an embedded knowledge base.
package chat

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/raushankrgupta/maternity-matters/apperr"
	"github.com/raushankrgupta/maternity-matters/utils"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	MsgEmpty   = "Message cannot be empty."
	MsgFailure = "Sorry, I'm having trouble responding right now. Please try again later."

	// maxHistory bounds the prior turns forwarded to the model.
	maxHistory = 20
)

// Prompts are the system instructions and knowledge base.
type Prompts struct {
	Persona       string `yaml:"persona"`
	FirstTurn     string `yaml:"first_turn"`
	FollowUp      string `yaml:"follow_up"`
	KnowledgeBase string `yaml:"knowledge_base"`
}

// LoadPrompts parses the embedded prompts file.
func LoadPrompts() (Prompts, error) {
	return ParsePrompts(promptsYAML)
}

// ParsePrompts parses a prompts document. Every section is required.
func ParsePrompts(data []byte) (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(p.FirstTurn) == "" || strings.TrimSpace(p.FollowUp) == "" || strings.TrimSpace(p.KnowledgeBase) == "" {
		return Prompts{}, errors.New("parse prompts: missing prompt or knowledge base")
	}
	return p, nil
}

// Generator produces a model reply.
type Generator interface {
	GenerateReply(ctx context.Context, systemPrompt string, history []utils.ChatTurn, message string) (string, error)
}

// Message is one chat turn as sent by the frontend, which uses either
// role/content or from/text.
type Message struct {
	Role    string `json:"role,omitempty"`
	From    string `json:"from,omitempty"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Request carries either a single message or a running history whose last
// user turn is the question.
type Request struct {
	Message  string    `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Reply is the assistant's answer.
type Reply struct {
	Reply string `json:"reply"`
}

// Assistant builds prompts and calls the generator. It keeps no state
// between calls.
type Assistant struct {
	gen     Generator
	prompts Prompts
}

func NewAssistant(gen Generator, prompts Prompts) *Assistant {
	return &Assistant{gen: gen, prompts: prompts}
}

// SystemPrompt returns the instruction for the first turn or a later one.
func (a *Assistant) SystemPrompt(firstTurn bool) string {
	prompt := a.prompts.FollowUp
	if firstTurn {
		prompt = a.prompts.FirstTurn
	}
	return strings.TrimSpace(prompt) + "\n\n--- KNOWLEDGE BASE ---\n" + strings.TrimSpace(a.prompts.KnowledgeBase)
}

// Reply answers the question in req.
func (a *Assistant) Reply(ctx context.Context, req Request) (*Reply, error) {
	question, history := conversation(req)
	if question == "" {
		return nil, apperr.Validation(apperr.Field("message", MsgEmpty))
	}
	firstTurn := true
	for _, turn := range history {
		if turn.Role == utils.RoleUser {
			firstTurn = false
			break
		}
	}

	text, err := a.gen.GenerateReply(ctx, a.SystemPrompt(firstTurn), history, question)
	if err != nil {
		utils.ChatRequests.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("AI chat error")
		return nil, apperr.Upstream(MsgFailure, err)
	}
	utils.ChatRequests.WithLabelValues("ok").Inc()
	return &Reply{Reply: strings.TrimSpace(text)}, nil
}

// conversation extracts the question and the prior turns, normalised so the
// history starts with a user turn and alternates roles.
func conversation(req Request) (string, []utils.ChatTurn) {
	if len(req.Messages) == 0 {
		return strings.TrimSpace(req.Message), nil
	}

	var turns []utils.ChatTurn
	for _, m := range req.Messages {
		role, ok := modelRole(m)
		if !ok {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			text = strings.TrimSpace(m.Text)
		}
		if text == "" {
			continue
		}
		turns = append(turns, utils.ChatTurn{Role: role, Text: text})
	}

	last := -1
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == utils.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return strings.TrimSpace(req.Message), nil
	}
	return turns[last].Text, normalizeHistory(turns[:last])
}

func normalizeHistory(turns []utils.ChatTurn) []utils.ChatTurn {
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	var out []utils.ChatTurn
	for _, t := range turns {
		if len(out) == 0 && t.Role != utils.RoleUser {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			out[n-1].Text += "\n\n" + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}

func modelRole(m Message) (string, bool) {
	role := m.Role
	if role == "" {
		role = m.From
	}
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "human":
		return utils.RoleUser, true
	case "ai", "assistant", "model", "bot":
		return utils.RoleModel, true
	default:
		return "", false
	}
}
