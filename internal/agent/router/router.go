// Package router implements confidence-based agent selection and execution.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// Config tunes the selection policy.
type Config struct {
	MinConfidence    float64 `yaml:"min_confidence"`
	MaxAgents        int     `yaml:"max_agents"`
	ExclusiveMention bool    `yaml:"exclusive_mention"`
	EnableParallel   bool    `yaml:"enable_parallel"`
	CooldownSeconds  int     `yaml:"cooldown_seconds"`
	FallbackAgent    string  `yaml:"fallback_agent"`
}

// DefaultConfig returns the selection policy defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.3,
		MaxAgents:        3,
		ExclusiveMention: true,
	}
}

// Selection is one agent chosen for execution, in selection-rank order.
type Selection struct {
	Agent      agents.Agent
	Confidence float64
}

// Router selects and executes agents from the pool.
type Router struct {
	pool      *agents.Pool
	cfg       Config
	cooldowns cooldownMap
	log       logging.Logger
}

// New creates a router over the given pool.
func New(pool *agents.Pool, cfg Config) *Router {
	if cfg.MaxAgents <= 0 {
		cfg.MaxAgents = 3
	}
	return &Router{pool: pool, cfg: cfg, log: logging.For("router")}
}

// Config returns the active selection policy.
func (r *Router) Config() Config {
	return r.cfg
}

// SweepCooldowns drops cooldown entries older than maxAge.
func (r *Router) SweepCooldowns(maxAge time.Duration) int {
	return r.cooldowns.Sweep(maxAge)
}

// SelectAgents applies the selection policy without executing anyone.
// Order in the result is the deterministic selection rank: confidence
// descending, registration order on ties.
func (r *Router) SelectAgents(msg types.Message, chatCtx *types.ChatContext) []Selection {
	window := time.Duration(r.cfg.CooldownSeconds) * time.Second

	// Mention path: an @mention with exclusive routing short-circuits
	// every other agent, confidence forced to 1.0. A mentioned agent that
	// replied to this user within the cooldown window is still skipped;
	// when every mentioned agent is cooling down, the fallback answers.
	if r.cfg.ExclusiveMention {
		mentioned := false
		for _, name := range mentionedNames(msg) {
			agent, ok := r.pool.Get(name)
			if !ok {
				continue
			}
			mentioned = true
			if r.cooldowns.Active(agent.Name(), msg.UserID, window) {
				r.log.Infof("mentioned agent %s cooling down for user %s, skipped", agent.Name(), msg.UserID)
				continue
			}
			return []Selection{{Agent: agent, Confidence: 1.0}}
		}
		if mentioned {
			return r.fallbackSelection()
		}
	}

	all := r.pool.All()
	type scored struct {
		sel   Selection
		order int
	}
	var candidates []scored
	for i, agent := range all {
		score := clamp01(agent.CanHandle(msg, chatCtx))
		if score < r.cfg.MinConfidence {
			continue
		}
		candidates = append(candidates, scored{sel: Selection{Agent: agent, Confidence: score}, order: i})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].sel.Confidence != candidates[b].sel.Confidence {
			return candidates[a].sel.Confidence > candidates[b].sel.Confidence
		}
		return candidates[a].order < candidates[b].order
	})

	var selections []Selection
	for _, c := range candidates {
		if len(selections) >= r.cfg.MaxAgents {
			break
		}
		if r.cooldowns.Active(c.sel.Agent.Name(), msg.UserID, window) {
			r.log.Infof("agent %s cooling down for user %s, skipped", c.sel.Agent.Name(), msg.UserID)
			continue
		}
		selections = append(selections, c.sel)
	}

	if len(selections) == 0 {
		selections = r.fallbackSelection()
	}
	return selections
}

// fallbackSelection returns the configured fallback agent, if registered.
func (r *Router) fallbackSelection() []Selection {
	if r.cfg.FallbackAgent == "" {
		return nil
	}
	fallback, ok := r.pool.Get(r.cfg.FallbackAgent)
	if !ok {
		return nil
	}
	return []Selection{{Agent: fallback, Confidence: 0}}
}

// Route selects agents and executes them. Responses come back in selection
// order regardless of completion order.
func (r *Router) Route(ctx context.Context, msg types.Message, chatCtx *types.ChatContext) ([]*types.AgentResponse, error) {
	selections := r.SelectAgents(msg, chatCtx)
	if len(selections) == 0 {
		return nil, nil
	}
	return r.Execute(ctx, msg, chatCtx, selections)
}

// Execute runs an already-selected set of agents.
func (r *Router) Execute(ctx context.Context, msg types.Message, chatCtx *types.ChatContext, selections []Selection) ([]*types.AgentResponse, error) {
	if r.cfg.EnableParallel && len(selections) > 1 {
		return r.executeParallel(ctx, msg, chatCtx, selections)
	}
	return r.executeSequential(ctx, msg, chatCtx, selections)
}

func (r *Router) executeSequential(ctx context.Context, msg types.Message, chatCtx *types.ChatContext, selections []Selection) ([]*types.AgentResponse, error) {
	var responses []*types.AgentResponse
	for _, sel := range selections {
		resp, err := r.invoke(ctx, sel, msg, chatCtx)
		if err != nil {
			r.log.Errorf("agent %s failed: %v", sel.Agent.Name(), err)
			continue
		}
		r.cooldowns.Touch(sel.Agent.Name(), msg.UserID)
		responses = append(responses, resp)
		if !resp.ShouldContinue {
			break
		}
	}
	return responses, nil
}

// executeParallel fans out to all selected agents and reassembles results by
// selection rank so output order never depends on completion timing.
func (r *Router) executeParallel(ctx context.Context, msg types.Message, chatCtx *types.ChatContext, selections []Selection) ([]*types.AgentResponse, error) {
	slots := make([]*types.AgentResponse, len(selections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxAgents)
	for i, sel := range selections {
		g.Go(func() error {
			resp, err := r.invoke(gctx, sel, msg, chatCtx)
			if err != nil {
				r.log.Errorf("agent %s failed: %v", sel.Agent.Name(), err)
				return nil
			}
			r.cooldowns.Touch(sel.Agent.Name(), msg.UserID)
			slots[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var responses []*types.AgentResponse
	for _, resp := range slots {
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses, nil
}

// invoke calls one agent with panic recovery; a panicking agent only loses
// its own slot.
func (r *Router) invoke(ctx context.Context, sel Selection, msg types.Message, chatCtx *types.ChatContext) (resp *types.AgentResponse, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = fmt.Errorf("agent %s panicked: %v", sel.Agent.Name(), rec)
		}
	}()

	resp, err = sel.Agent.Respond(ctx, msg, chatCtx)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("agent %s returned nil response", sel.Agent.Name())
	}
	resp.AgentName = sel.Agent.Name()
	resp.Confidence = sel.Confidence
	return resp, nil
}

// mentionedNames extracts @mentions from the message body and metadata.
func mentionedNames(msg types.Message) []string {
	names := append([]string(nil), msg.Mentions...)
	for _, word := range strings.Fields(msg.Content) {
		if !strings.HasPrefix(word, "@") || len(word) < 2 {
			continue
		}
		name := strings.TrimRight(word[1:], ".,!?:;")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
