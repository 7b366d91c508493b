// Package contextbuilder assembles the prompt bundle for a turn: system
// prompt sections, short-term history, and the current message, trimmed to a
// token budget.
package contextbuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/history"
	"github.com/kindredloop/kindred/internal/agent/strategy"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// DefaultMaxMemories caps how many retrieved memories enter the prompt.
const DefaultMaxMemories = 8

// Config tunes the builder.
type Config struct {
	MaxMemories   int                  `yaml:"max_memories"`
	TokenBudget   int                  `yaml:"token_budget"`
	ReplyReserve  int                  `yaml:"reply_reserve"`
	CacheCapacity int                  `yaml:"cache_capacity"`
	Filter        history.FilterConfig `yaml:"filter"`
	Split         history.SplitConfig  `yaml:"split"`
}

// Builder assembles prompt bundles. It owns the rolling-summary cache and is
// safe for concurrent use.
type Builder struct {
	cfg        Config
	filter     *history.Filter
	summarizer *history.Summarizer
	cache      *history.SummaryCache
	log        logging.Logger
}

// New creates a builder. provider may be nil; summaries then use the
// rule-based path.
func New(cfg Config, provider ai.Provider) *Builder {
	if cfg.MaxMemories <= 0 {
		cfg.MaxMemories = DefaultMaxMemories
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}
	if cfg.ReplyReserve <= 0 {
		cfg.ReplyReserve = DefaultReplyReserve
	}
	return &Builder{
		cfg:        cfg,
		filter:     history.NewFilter(cfg.Filter),
		summarizer: history.NewSummarizer(provider),
		cache:      history.NewSummaryCache(cfg.CacheCapacity),
		log:        logging.For("contextbuilder"),
	}
}

// Input carries everything one assembly needs.
type Input struct {
	Persona  string
	Message  types.Message
	ChatCtx  *types.ChatContext
	Memories []types.MemoryRecord
	Strategy *strategy.State
}

// Bundle is the assembled prompt: a system prompt plus the message window,
// already trimmed to budget.
type Bundle struct {
	System   string
	Messages []ai.ChatMessage
	Summary  *types.RollingSummary
}

// Build assembles the bundle for the current turn. It filters the history,
// splits off the short-term window, summarizes the older slice (cached per
// chat), and joins the system prompt sections with blank lines.
func (b *Builder) Build(ctx context.Context, in Input) *Bundle {
	var turns []types.Message
	chatID, botID := in.Message.ChatID, ""
	if in.ChatCtx != nil {
		turns = in.ChatCtx.History
		botID = in.ChatCtx.BotID
	}

	filtered := b.filter.Apply(turns)
	shortTerm, midTerm := history.Split(filtered, b.cfg.Split)

	summary := b.summaryFor(ctx, chatID, botID, midTerm)

	sections := make([]string, 0, 4)
	if in.Persona != "" {
		sections = append(sections, in.Persona)
	}
	if mem := formatMemories(in.Memories, b.cfg.MaxMemories); mem != "" {
		sections = append(sections, mem)
	}
	if summary != nil && summary.SummaryText != "" {
		sections = append(sections, "Earlier in this conversation: "+summary.SummaryText)
	}
	if in.Strategy != nil {
		sections = append(sections, in.Strategy.Guidance())
	}
	system := strings.Join(sections, "\n\n")

	msgs := make([]ai.ChatMessage, 0, len(shortTerm)+1)
	for _, turn := range shortTerm {
		msgs = append(msgs, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	if pendingTurn(shortTerm, in.Message) {
		msgs = append(msgs, ai.ChatMessage{Role: "user", Content: in.Message.Content})
	}

	budget := b.cfg.TokenBudget - b.cfg.ReplyReserve - EstimateTokens(system)
	trimmed := truncateToBudget(msgs, budget)
	if len(trimmed) < len(msgs) {
		b.log.Infof("trimmed %d oldest turns to fit token budget", len(msgs)-len(trimmed))
	}

	return &Bundle{System: system, Messages: trimmed, Summary: summary}
}

// Summary returns the cached rolling summary for a chat, if any.
func (b *Builder) Summary(chatID, botID string) (*types.RollingSummary, bool) {
	return b.cache.Get(chatID, botID)
}

// CachedSummaries reports how many chats currently hold a rolling summary.
func (b *Builder) CachedSummaries() int {
	return b.cache.Len()
}

// StoreSummary caches an externally produced rolling summary for a chat.
func (b *Builder) StoreSummary(chatID, botID string, summary *types.RollingSummary) {
	if summary == nil || summary.SummaryText == "" {
		return
	}
	b.cache.Put(chatID, botID, summary)
}

// summaryFor summarizes the mid-term slice and refreshes the cache; with
// nothing to summarize it falls back to the cached summary.
func (b *Builder) summaryFor(ctx context.Context, chatID, botID string, midTerm []types.Message) *types.RollingSummary {
	if len(midTerm) == 0 {
		if cached, ok := b.cache.Get(chatID, botID); ok {
			return cached
		}
		return nil
	}
	summary := b.summarizer.Summarize(ctx, midTerm)
	if summary != nil {
		b.cache.Put(chatID, botID, summary)
	}
	return summary
}

func formatMemories(memories []types.MemoryRecord, max int) string {
	if len(memories) == 0 {
		return ""
	}
	if len(memories) > max {
		memories = memories[:max]
	}
	var sb strings.Builder
	sb.WriteString("Things you remember about the user:")
	for _, m := range memories {
		fmt.Fprintf(&sb, "\n- %s", m.Summary)
	}
	return sb.String()
}

// pendingTurn reports whether the current message still needs appending,
// i.e. the short-term window does not already end with it.
func pendingTurn(shortTerm []types.Message, msg types.Message) bool {
	if len(shortTerm) == 0 {
		return true
	}
	last := shortTerm[len(shortTerm)-1]
	return last.Role != "user" || last.Content != msg.Content
}
