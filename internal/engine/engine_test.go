package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/contextbuilder"
	"github.com/kindredloop/kindred/internal/agent/embeddings"
	"github.com/kindredloop/kindred/internal/agent/memory"
	"github.com/kindredloop/kindred/internal/agent/orchestrator"
	"github.com/kindredloop/kindred/internal/agent/router"
	"github.com/kindredloop/kindred/internal/agent/session"
	"github.com/kindredloop/kindred/internal/agent/skills"
	"github.com/kindredloop/kindred/internal/agent/strategy"
	"github.com/kindredloop/kindred/internal/db"
	"github.com/kindredloop/kindred/internal/types"
)

type echoAgent struct {
	name       string
	confidence float64
}

func (a *echoAgent) Name() string        { return a.name }
func (a *echoAgent) Description() string { return "echoes back" }
func (a *echoAgent) CanHandle(types.Message, *types.ChatContext) float64 {
	return a.confidence
}
func (a *echoAgent) Respond(_ context.Context, msg types.Message, _ *types.ChatContext) (*types.AgentResponse, error) {
	return &types.AgentResponse{Content: "heard: " + msg.Content, ShouldContinue: true}, nil
}
func (a *echoAgent) MemoryRead(context.Context, string) (map[string]any, error) { return nil, nil }
func (a *echoAgent) MemoryWrite(context.Context, string, map[string]any) error  { return nil }

// countingProvider tallies completion calls and always returns the scripted
// reply.
type countingProvider struct {
	reply string
	calls int
}

func (p *countingProvider) ID() string { return "counting" }
func (p *countingProvider) Complete(context.Context, *ai.ChatRequest) (string, error) {
	p.calls++
	return p.reply, nil
}

func newTestEngine(t *testing.T, pool *agents.Pool, provider ai.Provider) (*Engine, *session.Manager) {
	t.Helper()

	store, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions := session.NewManager(store.DB())
	embedder := embeddings.NewService(store.DB(), nil)
	retriever := memory.New(store, embedder, provider, memory.Config{})
	strat := strategy.New(strategy.NewLoader())
	builder := contextbuilder.New(contextbuilder.Config{}, nil)
	rt := router.New(pool, router.DefaultConfig())
	orch := orchestrator.New(provider, pool, rt, skills.NewRegistry(), orchestrator.Config{})

	eng := New(Config{BotID: "b1", Persona: "You are a warm companion."},
		sessions, retriever, strat, builder, orch)
	return eng, sessions
}

func TestProcessFallbackRoundTrip(t *testing.T) {
	pool := agents.NewPool()
	require.NoError(t, pool.Register(&echoAgent{name: "Companion", confidence: 0.9}))
	eng, sessions := newTestEngine(t, pool, nil)

	msg := types.Message{
		Content: "My birthday is on June 3rd, don't forget it",
		UserID:  "u1", ChatID: "c1", Role: "user",
	}
	result, err := eng.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, types.IntentSingleAgent, result.IntentType)
	assert.Equal(t, types.SourceFallback, result.IntentSource)
	assert.Equal(t, "heard: My birthday is on June 3rd, don't forget it", result.FinalResponse)

	// With the unified call unavailable, the rule-based importance analysis
	// runs and flags the birthday.
	require.NotNil(t, result.MemoryAnalysis)
	assert.True(t, result.MemoryAnalysis.IsImportant)
	assert.Equal(t, types.ImportanceHigh, result.MemoryAnalysis.ImportanceLevel)

	// The exchange is persisted to the session.
	sessionID, err := sessions.GetOrCreate(context.Background(), "u1", "b1")
	require.NoError(t, err)
	turns, err := sessions.History(context.Background(), sessionID, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestProcessWithoutAgentsSkipsAppend(t *testing.T) {
	eng, sessions := newTestEngine(t, agents.NewPool(), nil)

	result, err := eng.Process(context.Background(), types.Message{
		Content: "hello out there", UserID: "u2", ChatID: "c2", Role: "user",
	})
	require.NoError(t, err)

	assert.Equal(t, types.IntentDirectResponse, result.IntentType)
	assert.Equal(t, types.SourceFallback, result.IntentSource)
	assert.Empty(t, result.FinalResponse)

	sessionID, err := sessions.GetOrCreate(context.Background(), "u2", "b1")
	require.NoError(t, err)
	turns, err := sessions.History(context.Background(), sessionID, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestProcessMakesOneCompletionCall(t *testing.T) {
	pool := agents.NewPool()
	require.NoError(t, pool.Register(&echoAgent{name: "Companion", confidence: 0.9}))
	provider := &countingProvider{
		reply: `{"intent": "DIRECT_RESPONSE", "direct_reply": "Sounds like a big week!", "emotion": "gentle", "memory": {"is_important": false}}`,
	}
	eng, _ := newTestEngine(t, pool, provider)

	result, err := eng.Process(context.Background(), types.Message{
		Content: "started the new job on Monday", UserID: "u4", ChatID: "c4", Role: "user",
	})
	require.NoError(t, err)

	assert.Equal(t, types.IntentDirectResponse, result.IntentType)
	assert.Equal(t, types.SourceLLMBased, result.IntentSource)
	assert.Equal(t, "Sounds like a big week!", result.FinalResponse)

	// Retrieval must not issue its own refinement call when the unified
	// intent call runs; one message means one completion round trip.
	assert.Equal(t, 1, provider.calls)
}

func TestProcessHistoryAccumulates(t *testing.T) {
	pool := agents.NewPool()
	require.NoError(t, pool.Register(&echoAgent{name: "Companion", confidence: 0.9}))
	eng, _ := newTestEngine(t, pool, nil)

	for _, content := range []string{
		"we moved into the new apartment last week",
		"the kitchen still needs painting though",
	} {
		_, err := eng.Process(context.Background(), types.Message{
			Content: content, UserID: "u3", ChatID: "c3", Role: "user",
		})
		require.NoError(t, err)
	}

	result, err := eng.Process(context.Background(), types.Message{
		Content: "anyway, how are you doing today", UserID: "u3", ChatID: "c3", Role: "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "heard: anyway, how are you doing today", result.FinalResponse)
}
