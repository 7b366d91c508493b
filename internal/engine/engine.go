// Package engine is the single entry point for message processing: it loads
// the session, retrieves memories, computes the dialogue strategy, assembles
// the prompt, orchestrates agents, and persists the exchange.
package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kindredloop/kindred/internal/agent/contextbuilder"
	"github.com/kindredloop/kindred/internal/agent/memory"
	"github.com/kindredloop/kindred/internal/agent/orchestrator"
	"github.com/kindredloop/kindred/internal/agent/session"
	"github.com/kindredloop/kindred/internal/agent/skills"
	"github.com/kindredloop/kindred/internal/agent/strategy"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// DefaultHistoryLimit bounds how many stored turns load into a request.
const DefaultHistoryLimit = 40

// Config tunes the engine.
type Config struct {
	BotID        string `yaml:"bot_id"`
	Persona      string `yaml:"persona"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Engine wires the processing pipeline. Safe for concurrent use; one logical
// request per Process call.
type Engine struct {
	cfg       Config
	sessions  *session.Manager
	retriever *memory.Retriever
	strategy  *strategy.Engine
	builder   *contextbuilder.Builder
	orch      *orchestrator.Orchestrator
	log       logging.Logger
}

// New assembles an engine from its collaborators.
func New(cfg Config, sessions *session.Manager, retriever *memory.Retriever, strat *strategy.Engine, builder *contextbuilder.Builder, orch *orchestrator.Orchestrator) *Engine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Engine{
		cfg:       cfg,
		sessions:  sessions,
		retriever: retriever,
		strategy:  strat,
		builder:   builder,
		orch:      orch,
		log:       logging.For("engine"),
	}
}

// CachedSummaries reports the rolling-summary cache occupancy.
func (e *Engine) CachedSummaries() int {
	return e.builder.CachedSummaries()
}

// Process handles one inbound message end to end and returns the
// orchestration result. Model failures degrade to fallbacks; only storage
// failures on the critical path surface as errors.
func (e *Engine) Process(ctx context.Context, msg types.Message) (*types.OrchestrationResult, error) {
	sessionID, err := e.sessions.GetOrCreate(ctx, msg.UserID, e.cfg.BotID)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	// History load and memory retrieval are independent; run them together.
	var (
		turns    []types.Message
		memories []types.MemoryRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		turns, err = e.sessions.History(gctx, sessionID, e.cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// The unified intent call already carries the retrieval signal;
		// only the pure rule-based route needs its own query refinement.
		memories = e.retriever.Retrieve(gctx, msg.UserID, e.cfg.BotID, msg.Content, memory.Options{
			SkipModelAnalysis: e.orch.ModelBacked(),
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chatCtx := &types.ChatContext{
		ChatID:  msg.ChatID,
		BotID:   e.cfg.BotID,
		History: turns,
	}

	state := e.strategy.Analyze(strategy.AnalyzeInput{
		Message:  msg,
		ChatCtx:  chatCtx,
		Memories: memories,
	})

	bundle := e.builder.Build(ctx, contextbuilder.Input{
		Persona:  e.cfg.Persona,
		Message:  msg,
		ChatCtx:  chatCtx,
		Memories: memories,
		Strategy: state,
	})

	result, err := e.orch.Orchestrate(ctx, orchestrator.Request{
		Message: msg,
		ChatCtx: chatCtx,
		System:  bundle.System,
		Window:  bundle.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestration failed: %w", err)
	}

	if result.IntentType == types.IntentSkillSelection && result.FinalResponse == "" {
		result.FinalResponse = skills.BuildSelectionPrompt(result.SkillOptions)
	}

	e.commitMemory(msg, result)
	e.commitSummary(msg.ChatID, result)

	if result.FinalResponse != "" {
		if err := e.sessions.AppendExchange(ctx, sessionID, msg.Content, result.FinalResponse); err != nil {
			e.log.Errorf("failed to append exchange: %v", err)
		}
	}
	return result, nil
}

// commitMemory persists the importance verdict, running the rule-based
// analysis only when the unified call did not produce one.
func (e *Engine) commitMemory(msg types.Message, result *types.OrchestrationResult) {
	verdict := result.MemoryAnalysis
	if verdict == nil && result.IntentSource == types.SourceFallback {
		verdict = memory.AnalyzeImportance(msg.Content)
		result.MemoryAnalysis = verdict
	}
	if verdict == nil || !verdict.IsImportant {
		return
	}

	// Fire and commit: the reply does not wait on the write.
	go func() {
		record, err := e.retriever.SaveIfImportant(context.Background(), msg.UserID, e.cfg.BotID, verdict)
		if err != nil {
			e.log.Errorf("memory write failed: %v", err)
			return
		}
		if record != nil {
			e.log.Infof("saved %s memory for user %s", record.ImportanceLevel, msg.UserID)
		}
	}()
}

// commitSummary folds the unified call's conversation summary into the
// rolling-summary cache.
func (e *Engine) commitSummary(chatID string, result *types.OrchestrationResult) {
	cs := result.ConversationSummary
	if cs == nil || cs.SummaryText == "" {
		return
	}
	e.builder.StoreSummary(chatID, e.cfg.BotID, &types.RollingSummary{
		SummaryText:       cs.SummaryText,
		KeyTopics:         cs.Topics,
		EmotionTrajectory: cs.UserState,
	})
}
