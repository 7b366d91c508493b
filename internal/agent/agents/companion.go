package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/types"
)

// CompanionAgent is the general-purpose persona agent backed by a completion
// provider. It doubles as the router's fallback agent: a low baseline
// confidence keeps it out of the way when a specialist matches.
type CompanionAgent struct {
	name        string
	description string
	persona     string
	provider    ai.Provider
	baseline    float64
	keywords    []string
	values      *types.ValueDimensions

	mu      sync.RWMutex
	scratch map[string]map[string]any
}

// CompanionConfig configures a CompanionAgent.
type CompanionConfig struct {
	Name        string
	Description string
	Persona     string
	Provider    ai.Provider
	Baseline    float64  // default 0.3
	Keywords    []string // each hit raises confidence by 0.15
	Values      *types.ValueDimensions
}

// NewCompanionAgent creates a persona agent.
func NewCompanionAgent(cfg CompanionConfig) *CompanionAgent {
	if cfg.Baseline == 0 {
		cfg.Baseline = 0.3
	}
	return &CompanionAgent{
		name:        cfg.Name,
		description: cfg.Description,
		persona:     cfg.Persona,
		provider:    cfg.Provider,
		baseline:    cfg.Baseline,
		keywords:    cfg.Keywords,
		values:      cfg.Values,
		scratch:     make(map[string]map[string]any),
	}
}

// Name returns the agent name
func (a *CompanionAgent) Name() string { return a.name }

// Description returns the agent description
func (a *CompanionAgent) Description() string { return a.description }

// ValueDimensions returns the declared value dimensions, nil if none
func (a *CompanionAgent) ValueDimensions() *types.ValueDimensions { return a.values }

// CanHandle scores relevance from the baseline plus keyword hits
func (a *CompanionAgent) CanHandle(msg types.Message, chatCtx *types.ChatContext) float64 {
	score := a.baseline
	lower := strings.ToLower(msg.Content)
	for _, kw := range a.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 0.15
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Respond generates a reply through the completion provider using the
// assembled system prompt carried on the chat context.
func (a *CompanionAgent) Respond(ctx context.Context, msg types.Message, chatCtx *types.ChatContext) (*types.AgentResponse, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("agent %s has no completion provider", a.name)
	}

	system := a.persona
	if chatCtx != nil && chatCtx.SystemPrompt != "" {
		system = chatCtx.SystemPrompt
	}

	var messages []ai.ChatMessage
	if chatCtx != nil {
		for _, turn := range chatCtx.History {
			messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
		}
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: msg.Content})

	text, err := a.provider.Complete(ctx, &ai.ChatRequest{
		System:   system,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s completion failed: %w", a.name, err)
	}

	return &types.AgentResponse{
		Content:        text,
		AgentName:      a.name,
		Confidence:     a.CanHandle(msg, chatCtx),
		ShouldContinue: false,
	}, nil
}

// MemoryRead loads the agent's per-user scratch state
func (a *CompanionAgent) MemoryRead(ctx context.Context, userID string) (map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.scratch[userID]
	if !ok {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// MemoryWrite stores the agent's per-user scratch state
func (a *CompanionAgent) MemoryWrite(ctx context.Context, userID string, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scratch[userID] = data
	return nil
}
