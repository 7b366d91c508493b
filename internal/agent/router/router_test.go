package router

import (
	"context"
	"testing"
	"time"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/types"
)

type fakeAgent struct {
	name           string
	score          float64
	delay          time.Duration
	shouldContinue bool
	calls          int
}

func (f *fakeAgent) Name() string        { return f.name }
func (f *fakeAgent) Description() string { return "fake" }
func (f *fakeAgent) CanHandle(msg types.Message, chatCtx *types.ChatContext) float64 {
	return f.score
}
func (f *fakeAgent) Respond(ctx context.Context, msg types.Message, chatCtx *types.ChatContext) (*types.AgentResponse, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &types.AgentResponse{
		Content:        "reply from " + f.name,
		AgentName:      f.name,
		Confidence:     f.score,
		ShouldContinue: f.shouldContinue,
	}, nil
}
func (f *fakeAgent) MemoryRead(ctx context.Context, userID string) (map[string]any, error) {
	return nil, nil
}
func (f *fakeAgent) MemoryWrite(ctx context.Context, userID string, data map[string]any) error {
	return nil
}

func newPool(t *testing.T, list ...agents.Agent) *agents.Pool {
	t.Helper()
	pool := agents.NewPool()
	for _, a := range list {
		if err := pool.Register(a); err != nil {
			t.Fatalf("Register(%s) error = %v", a.Name(), err)
		}
	}
	return pool
}

func userMsg(content string) types.Message {
	return types.Message{Content: content, UserID: "u1", ChatID: "c1", Role: "user"}
}

func TestSelectAgentsRespectsMinConfidenceAndMaxAgents(t *testing.T) {
	pool := newPool(t,
		&fakeAgent{name: "A", score: 0.9},
		&fakeAgent{name: "B", score: 0.8},
		&fakeAgent{name: "C", score: 0.7},
		&fakeAgent{name: "D", score: 0.2},
	)
	r := New(pool, Config{MinConfidence: 0.5, MaxAgents: 2})

	selections := r.SelectAgents(userMsg("hello"), nil)
	if len(selections) != 2 {
		t.Fatalf("selected %d agents, want 2", len(selections))
	}
	for _, sel := range selections {
		if sel.Confidence < 0.5 {
			t.Errorf("agent %s selected below min confidence: %v", sel.Agent.Name(), sel.Confidence)
		}
	}
	if selections[0].Agent.Name() != "A" || selections[1].Agent.Name() != "B" {
		t.Errorf("selection order = %s, %s; want A, B", selections[0].Agent.Name(), selections[1].Agent.Name())
	}
}

func TestSelectAgentsTieBreakByRegistrationOrder(t *testing.T) {
	pool := newPool(t,
		&fakeAgent{name: "First", score: 0.6},
		&fakeAgent{name: "Second", score: 0.6},
	)
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3})

	selections := r.SelectAgents(userMsg("hello"), nil)
	if len(selections) != 2 || selections[0].Agent.Name() != "First" {
		t.Errorf("tie must keep registration order, got %v", names(selections))
	}
}

func TestExclusiveMention(t *testing.T) {
	pool := newPool(t,
		&fakeAgent{name: "ChatBot", score: 0.99},
		&fakeAgent{name: "TechBot", score: 0.1},
	)
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3, ExclusiveMention: true})

	responses, err := r.Route(context.Background(), userMsg("@TechBot fix this bug"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want exactly 1", len(responses))
	}
	if responses[0].AgentName != "TechBot" {
		t.Errorf("responder = %s, want TechBot", responses[0].AgentName)
	}
	if responses[0].Confidence != 1.0 {
		t.Errorf("mention confidence = %v, want 1.0", responses[0].Confidence)
	}
}

func TestParallelExecutionDeterministicOrder(t *testing.T) {
	// The top-ranked agent finishes last; order must still follow rank.
	pool := newPool(t,
		&fakeAgent{name: "Slow", score: 0.9, delay: 50 * time.Millisecond, shouldContinue: true},
		&fakeAgent{name: "Mid", score: 0.8, delay: 20 * time.Millisecond, shouldContinue: true},
		&fakeAgent{name: "Fast", score: 0.7, shouldContinue: true},
	)
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3, EnableParallel: true})

	responses, err := r.Route(context.Background(), userMsg("hello"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := []string{"Slow", "Mid", "Fast"}
	if len(responses) != len(want) {
		t.Fatalf("got %d responses, want %d", len(responses), len(want))
	}
	for i, name := range want {
		if responses[i].AgentName != name {
			t.Errorf("responses[%d] = %s, want %s", i, responses[i].AgentName, name)
		}
	}
}

func TestSequentialStopsWhenShouldContinueFalse(t *testing.T) {
	second := &fakeAgent{name: "B", score: 0.8, shouldContinue: true}
	pool := newPool(t,
		&fakeAgent{name: "A", score: 0.9, shouldContinue: false},
		second,
	)
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3})

	responses, err := r.Route(context.Background(), userMsg("hello"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if second.calls != 0 {
		t.Error("second agent should not run after ShouldContinue=false")
	}
}

func TestCooldownSkipsRecentResponder(t *testing.T) {
	hot := &fakeAgent{name: "Hot", score: 0.9, shouldContinue: false}
	pool := newPool(t, hot, &fakeAgent{name: "Backup", score: 0.6, shouldContinue: false})
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3, CooldownSeconds: 60})

	first, err := r.Route(context.Background(), userMsg("hello"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(first) != 1 || first[0].AgentName != "Hot" {
		t.Fatalf("first route = %v", respNames(first))
	}

	second, err := r.Route(context.Background(), userMsg("hello again"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(second) != 1 || second[0].AgentName != "Backup" {
		t.Errorf("cooled-down agent should be skipped, got %v", respNames(second))
	}

	// A different user is unaffected by the first user's cooldown.
	other := types.Message{Content: "hi", UserID: "u2", ChatID: "c2", Role: "user"}
	third, err := r.Route(context.Background(), other, nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(third) != 1 || third[0].AgentName != "Hot" {
		t.Errorf("cooldown leaked across users, got %v", respNames(third))
	}
}

func TestExclusiveMentionRespectsCooldown(t *testing.T) {
	tech := &fakeAgent{name: "TechBot", score: 0.1, shouldContinue: false}
	pool := newPool(t, tech, &fakeAgent{name: "Companion", score: 0.9, shouldContinue: false})
	r := New(pool, Config{
		MinConfidence:    0.3,
		MaxAgents:        3,
		ExclusiveMention: true,
		CooldownSeconds:  60,
		FallbackAgent:    "Companion",
	})

	first, err := r.Route(context.Background(), userMsg("@TechBot fix this bug"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(first) != 1 || first[0].AgentName != "TechBot" {
		t.Fatalf("first route = %v, want TechBot", respNames(first))
	}

	second, err := r.Route(context.Background(), userMsg("@TechBot still broken"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(second) != 1 || second[0].AgentName != "Companion" {
		t.Errorf("cooled-down mention must fall back, got %v", respNames(second))
	}
	if tech.calls != 1 {
		t.Errorf("TechBot ran %d times, want 1", tech.calls)
	}
}

func TestExclusiveMentionCooldownWithoutFallback(t *testing.T) {
	pool := newPool(t, &fakeAgent{name: "TechBot", score: 0.9, shouldContinue: false})
	r := New(pool, Config{MinConfidence: 0.3, MaxAgents: 3, ExclusiveMention: true, CooldownSeconds: 60})

	if _, err := r.Route(context.Background(), userMsg("@TechBot help"), nil); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if selections := r.SelectAgents(userMsg("@TechBot again"), nil); len(selections) != 0 {
		t.Errorf("cooled-down mention with no fallback must select nobody, got %v", names(selections))
	}
}

func TestFallbackAgentWhenNoneClearThreshold(t *testing.T) {
	pool := newPool(t,
		&fakeAgent{name: "Picky", score: 0.1},
		&fakeAgent{name: "Luna", score: 0.05, shouldContinue: false},
	)
	r := New(pool, Config{MinConfidence: 0.5, MaxAgents: 3, FallbackAgent: "Luna"})

	responses, err := r.Route(context.Background(), userMsg("hello"), nil)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(responses) != 1 || responses[0].AgentName != "Luna" {
		t.Fatalf("fallback not used, got %v", respNames(responses))
	}
	if responses[0].Confidence != 0 {
		t.Errorf("fallback confidence = %v, want 0", responses[0].Confidence)
	}
}

func TestSelectAgentsEmptyWithoutFallback(t *testing.T) {
	pool := newPool(t, &fakeAgent{name: "Picky", score: 0.1})
	r := New(pool, Config{MinConfidence: 0.5, MaxAgents: 3})
	if selections := r.SelectAgents(userMsg("hello"), nil); len(selections) != 0 {
		t.Errorf("expected no selections, got %v", names(selections))
	}
}

func names(selections []Selection) []string {
	out := make([]string, len(selections))
	for i, s := range selections {
		out[i] = s.Agent.Name()
	}
	return out
}

func respNames(responses []*types.AgentResponse) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.AgentName
	}
	return out
}
