// Package orchestrator resolves each inbound message to an intent, runs the
// chosen agents, and synthesizes the final reply. Intent analysis is a single
// structured model call; every failure path degrades to a rule-based route.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/jsonx"
	"github.com/kindredloop/kindred/internal/agent/router"
	"github.com/kindredloop/kindred/internal/agent/skills"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

const (
	// DefaultSkillThreshold is the matching-agent count at which the
	// orchestrator defers to a skill-selection prompt.
	DefaultSkillThreshold = 3
	// MaxSkillOptions caps the ranked options in a skill-selection result.
	MaxSkillOptions = 5
	// MaxReplyParts caps how many segments a reply may split into.
	MaxReplyParts = 3

	// SplitMarker separates reply segments in model output.
	SplitMarker = "[MSG_SPLIT]"
)

// Config tunes the orchestrator.
type Config struct {
	SkillThreshold int    `yaml:"skill_threshold"`
	EnableSkills   bool   `yaml:"enable_skills"`
	SynthesisModel string `yaml:"synthesis_model"`
}

// Orchestrator drives ANALYZE_INTENT, EXECUTE, and SYNTHESIZE for one
// message at a time. Safe for concurrent use.
type Orchestrator struct {
	provider ai.Provider // optional; nil forces the fallback route
	pool     *agents.Pool
	router   *router.Router
	skills   *skills.Registry
	cfg      Config
	log      logging.Logger
}

// New creates an orchestrator. provider may be nil.
func New(provider ai.Provider, pool *agents.Pool, rt *router.Router, reg *skills.Registry, cfg Config) *Orchestrator {
	if cfg.SkillThreshold <= 0 {
		cfg.SkillThreshold = DefaultSkillThreshold
	}
	return &Orchestrator{
		provider: provider,
		pool:     pool,
		router:   rt,
		skills:   reg,
		cfg:      cfg,
		log:      logging.For("orchestrator"),
	}
}

// ModelBacked reports whether a completion provider is wired in, meaning
// the unified intent call will run for each message.
func (o *Orchestrator) ModelBacked() bool {
	return o.provider != nil
}

// Request is one message plus its assembled prompt window.
type Request struct {
	Message types.Message
	ChatCtx *types.ChatContext
	System  string           // assembled system prompt
	Window  []ai.ChatMessage // short-term history ending with the message
}

// unifiedVerdict is the JSON shape of the single intent-analysis call.
type unifiedVerdict struct {
	Intent              string                     `json:"intent"`
	Agents              []string                   `json:"agents"`
	DirectReply         string                     `json:"direct_reply"`
	Emotion             string                     `json:"emotion"`
	EmotionDescription  string                     `json:"emotion_description"`
	Memory              *types.MemoryAnalysis      `json:"memory"`
	ConversationSummary *types.ConversationSummary `json:"conversation_summary"`
}

const unifiedPrompt = `You orchestrate a companion chat service. Analyze the user's latest message and reply with JSON only:
{
  "intent": "DIRECT_RESPONSE" | "SINGLE_AGENT" | "MULTI_AGENT",
  "agents": ["name", ...],
  "direct_reply": "reply text when intent is DIRECT_RESPONSE; split long replies with [MSG_SPLIT], at most 3 parts",
  "emotion": "happy" | "gentle" | "sad" | "excited" | "angry" | "crying",
  "emotion_description": "one short sentence",
  "memory": {"is_important": bool, "importance_level": "low"|"medium"|"high"|"critical", "event_type": "...", "event_summary": "...", "keywords": ["..."], "event_date": "", "raw_date_expression": ""},
  "conversation_summary": {"summary_text": "...", "key_elements": ["..."], "topics": ["..."], "user_state": "..."}
}

Available agents:
%s`

// Orchestrate resolves one message end to end.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*types.OrchestrationResult, error) {
	verdict, err := o.analyzeIntent(ctx, req)
	if err != nil {
		o.log.Warnf("intent analysis unavailable, using rule-based route: %v", err)
		return o.fallback(ctx, req)
	}

	result := &types.OrchestrationResult{
		IntentSource:       types.SourceLLMBased,
		Emotion:            verdict.Emotion,
		EmotionDescription: verdict.EmotionDescription,
		MemoryAnalysis:     verdict.Memory,
	}
	if verdict.ConversationSummary != nil && verdict.ConversationSummary.SummaryText != "" {
		result.ConversationSummary = verdict.ConversationSummary
	}

	if options := o.skillOptions(req); options != nil {
		result.IntentType = types.IntentSkillSelection
		result.SkillOptions = options
		return result, nil
	}

	switch verdict.Intent {
	case string(types.IntentDirectResponse):
		result.IntentType = types.IntentDirectResponse
		setReply(result, verdict.DirectReply)
		return result, nil
	case string(types.IntentSingleAgent), string(types.IntentMultiAgent):
		selections := o.selectionsFor(verdict.Agents)
		if len(selections) == 0 {
			o.log.Warnf("model chose unknown agents %v, using rule-based route", verdict.Agents)
			return o.fallbackWith(ctx, req, result)
		}
		return o.execute(ctx, req, result, selections)
	default:
		o.log.Warnf("model returned unknown intent %q, using rule-based route", verdict.Intent)
		return o.fallbackWith(ctx, req, result)
	}
}

func (o *Orchestrator) analyzeIntent(ctx context.Context, req Request) (*unifiedVerdict, error) {
	if o.provider == nil {
		return nil, ai.ErrModelUnavailable
	}

	system := fmt.Sprintf(unifiedPrompt, o.agentCatalog())
	if req.System != "" {
		system = req.System + "\n\n" + system
	}
	text, err := o.provider.Complete(ctx, &ai.ChatRequest{
		System:      system,
		Messages:    req.Window,
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("intent analysis failed: %w", err)
	}

	verdict := &unifiedVerdict{}
	if err := jsonx.ExtractObject(text, verdict); err != nil {
		return nil, fmt.Errorf("intent analysis returned no JSON: %w", err)
	}
	return verdict, nil
}

func (o *Orchestrator) agentCatalog() string {
	var sb strings.Builder
	for _, a := range o.pool.All() {
		fmt.Fprintf(&sb, "- %s: %s\n", a.Name(), a.Description())
	}
	return sb.String()
}

// skillOptions returns ranked options when enough agents clear the
// confidence bar to make a direct route ambiguous.
func (o *Orchestrator) skillOptions(req Request) []types.SkillOption {
	if !o.cfg.EnableSkills || o.skills == nil {
		return nil
	}
	matched := o.router.SelectAgents(req.Message, req.ChatCtx)
	eligible := 0
	for _, sel := range matched {
		if sel.Confidence > 0 {
			eligible++
		}
	}
	if eligible < o.cfg.SkillThreshold {
		return nil
	}
	options := o.skills.Match(req.Message.Content, MaxSkillOptions)
	if len(options) == 0 {
		return nil
	}
	return options
}

// fallback is the rule-based route: the top selection becomes a single-agent
// run, nothing selected becomes a direct response. MemoryAnalysis stays nil
// so the caller runs its own importance analysis exactly once.
func (o *Orchestrator) fallback(ctx context.Context, req Request) (*types.OrchestrationResult, error) {
	return o.fallbackWith(ctx, req, &types.OrchestrationResult{})
}

func (o *Orchestrator) fallbackWith(ctx context.Context, req Request, result *types.OrchestrationResult) (*types.OrchestrationResult, error) {
	result.IntentSource = types.SourceFallback
	result.MemoryAnalysis = nil

	selections := o.router.SelectAgents(req.Message, req.ChatCtx)
	if len(selections) == 0 {
		result.IntentType = types.IntentDirectResponse
		return result, nil
	}
	return o.execute(ctx, req, result, selections[:1])
}

// execute runs the selections and synthesizes the final reply.
func (o *Orchestrator) execute(ctx context.Context, req Request, result *types.OrchestrationResult, selections []router.Selection) (*types.OrchestrationResult, error) {
	if len(selections) == 1 {
		result.IntentType = types.IntentSingleAgent
	} else {
		result.IntentType = types.IntentMultiAgent
	}

	chatCtx := req.ChatCtx
	if chatCtx != nil && req.System != "" {
		withPrompt := *chatCtx
		withPrompt.SystemPrompt = req.System
		chatCtx = &withPrompt
	}

	responses, err := o.router.Execute(ctx, req.Message, chatCtx, selections)
	if err != nil {
		return nil, fmt.Errorf("agent execution failed: %w", err)
	}
	result.AgentResponses = responses

	setReply(result, o.synthesize(ctx, responses))
	return result, nil
}

// synthesize merges agent responses into one reply: a secondary model call
// when available, a labeled concatenation in selection order otherwise.
func (o *Orchestrator) synthesize(ctx context.Context, responses []*types.AgentResponse) string {
	if len(responses) == 0 {
		return ""
	}
	if len(responses) == 1 {
		return responses[0].Content
	}

	if o.provider != nil {
		var sb strings.Builder
		for _, resp := range responses {
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", resp.AgentName, resp.Content)
		}
		text, err := o.provider.Complete(ctx, &ai.ChatRequest{
			System:      "Merge the following agent answers into one coherent reply. Keep every distinct fact; drop the labels.",
			Messages:    []ai.ChatMessage{{Role: "user", Content: sb.String()}},
			MaxTokens:   1000,
			Temperature: 0.3,
			Model:       o.cfg.SynthesisModel,
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		o.log.Warnf("synthesis call failed, concatenating: %v", err)
	}

	parts := make([]string, 0, len(responses))
	for _, resp := range responses {
		parts = append(parts, fmt.Sprintf("[%s] %s", resp.AgentName, resp.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (o *Orchestrator) selectionsFor(names []string) []router.Selection {
	var selections []router.Selection
	limit := o.router.Config().MaxAgents
	for _, name := range names {
		agent, ok := o.pool.Get(name)
		if !ok {
			o.log.Warnf("model chose unregistered agent %q", name)
			continue
		}
		selections = append(selections, router.Selection{Agent: agent, Confidence: 1.0})
		if len(selections) == limit {
			break
		}
	}
	return selections
}

// setReply stores the final reply and, when it carries split markers, the
// individual parts.
func setReply(result *types.OrchestrationResult, reply string) {
	result.FinalResponse = strings.TrimSpace(strings.ReplaceAll(reply, SplitMarker, "\n"))
	parts := SplitReply(reply)
	if len(parts) > 1 {
		result.ReplyParts = parts
	}
}

// SplitReply cuts a reply on the split marker, folding any overflow into the
// last allowed part.
func SplitReply(reply string) []string {
	raw := strings.Split(reply, SplitMarker)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > MaxReplyParts {
		parts[MaxReplyParts-1] = strings.Join(parts[MaxReplyParts-1:], "\n")
		parts = parts[:MaxReplyParts]
	}
	return parts
}
