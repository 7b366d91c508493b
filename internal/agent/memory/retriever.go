// Package memory implements long-term semantic memory: similarity retrieval
// over persisted records, metadata fallback, and importance-gated writes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/embeddings"
	"github.com/kindredloop/kindred/internal/agent/jsonx"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// DefaultSimilarityThreshold is the cosine floor for a retrieval hit.
const DefaultSimilarityThreshold = 0.5

// DefaultLimit caps how many records one retrieval returns.
const DefaultLimit = 8

// Store is the persistence collaborator for memory records.
type Store interface {
	SaveMemory(ctx context.Context, rec *types.MemoryRecord) error
	MemoriesByOwner(ctx context.Context, userID, botID string) ([]types.MemoryRecord, error)
	MemoriesByEventTypes(ctx context.Context, userID, botID string, eventTypes []string, limit int) ([]types.MemoryRecord, error)
	BumpAccessCount(ctx context.Context, ids []string)
}

// Config tunes retrieval.
type Config struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Limit               int     `yaml:"limit"`
}

// Retriever performs semantic retrieval and importance-gated persistence.
type Retriever struct {
	store    Store
	embedder *embeddings.Service
	provider ai.Provider // optional, query refinement only
	cfg      Config
	log      logging.Logger
}

// New creates a retriever. provider may be nil, which disables query
// refinement but nothing else.
func New(store Store, embedder *embeddings.Service, provider ai.Provider, cfg Config) *Retriever {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		provider: provider,
		cfg:      cfg,
		log:      logging.For("memory"),
	}
}

// Options adjust one retrieval call.
type Options struct {
	// SkipModelAnalysis suppresses the query-refinement completion call.
	// Set when the orchestrator's unified call already supplied signal.
	SkipModelAnalysis bool
	// EventTypes narrows the metadata fallback path.
	EventTypes []string
	// Limit overrides the configured cap when > 0.
	Limit int
}

// Retrieve returns the most relevant records for the query, best first.
// The primary path is cosine similarity over embeddings; if the embedding
// service is unavailable or nothing clears the threshold, it degrades to the
// metadata path. Never returns an error the caller must act on.
func (r *Retriever) Retrieve(ctx context.Context, userID, botID, query string, opts Options) []types.MemoryRecord {
	limit := opts.Limit
	if limit <= 0 {
		limit = r.cfg.Limit
	}

	searchText := query
	if !opts.SkipModelAnalysis && r.provider != nil {
		if refined := r.refineQuery(ctx, query); refined != "" {
			searchText = refined
		}
	}

	records := r.retrieveBySimilarity(ctx, userID, botID, searchText, limit)
	if len(records) == 0 {
		records = r.retrieveByMetadata(ctx, userID, botID, opts.EventTypes, limit)
	}

	if len(records) > 0 {
		ids := make([]string, len(records))
		for i := range records {
			ids[i] = records[i].ID
		}
		r.store.BumpAccessCount(ctx, ids)
	}
	return records
}

func (r *Retriever) retrieveBySimilarity(ctx context.Context, userID, botID, query string, limit int) []types.MemoryRecord {
	if r.embedder == nil || !r.embedder.Available() || strings.TrimSpace(query) == "" {
		return nil
	}

	queryVec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		r.log.Warnf("query embedding failed, using metadata path: %v", err)
		return nil
	}

	stored, err := r.store.MemoriesByOwner(ctx, userID, botID)
	if err != nil {
		r.log.Errorf("failed to load memories: %v", err)
		return nil
	}

	var hits []types.MemoryRecord
	for _, rec := range stored {
		if len(rec.Embedding) == 0 {
			continue
		}
		sim := embeddings.CosineSimilarity(queryVec, rec.Embedding)
		if sim < r.cfg.SimilarityThreshold {
			continue
		}
		rec.Similarity = sim
		hits = append(hits, rec)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (r *Retriever) retrieveByMetadata(ctx context.Context, userID, botID string, eventTypes []string, limit int) []types.MemoryRecord {
	records, err := r.store.MemoriesByEventTypes(ctx, userID, botID, eventTypes, limit)
	if err != nil {
		r.log.Errorf("metadata retrieval failed: %v", err)
		return nil
	}
	return records
}

const refineQueryPrompt = `Extract the best search phrase for recalling related past events from this message. Reply with JSON only: {"query": "..."}

Message: %s`

// refineQuery asks the completion service for a sharper retrieval phrase.
// Any failure falls back to the raw query.
func (r *Retriever) refineQuery(ctx context.Context, query string) string {
	text, err := r.provider.Complete(ctx, &ai.ChatRequest{
		Messages:    []ai.ChatMessage{{Role: "user", Content: fmt.Sprintf(refineQueryPrompt, query)}},
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		r.log.Warnf("query refinement failed: %v", err)
		return ""
	}

	var parsed struct {
		Query string `json:"query"`
	}
	if err := jsonx.ExtractObject(text, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Query)
}

// SaveIfImportant persists a memory record when the verdict clears the
// medium-importance bar. The embedding is computed here, once, and never
// recomputed. Returns the saved record, or nil when nothing was written.
func (r *Retriever) SaveIfImportant(ctx context.Context, userID, botID string, verdict *types.MemoryAnalysis) (*types.MemoryRecord, error) {
	if verdict == nil || !verdict.IsImportant {
		return nil, nil
	}
	if !verdict.ImportanceLevel.AtLeast(types.ImportanceMedium) {
		return nil, nil
	}
	if strings.TrimSpace(verdict.EventSummary) == "" {
		return nil, nil
	}

	rec := &types.MemoryRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		BotID:           botID,
		Summary:         verdict.EventSummary,
		EventType:       verdict.EventType,
		EventDate:       verdict.EventDate,
		ImportanceLevel: verdict.ImportanceLevel,
		Keywords:        verdict.Keywords,
	}

	if r.embedder != nil && r.embedder.Available() {
		vec, err := r.embedder.EmbedOne(ctx, rec.Summary)
		if err != nil {
			r.log.Warnf("embedding failed, saving record without vector: %v", err)
		} else {
			rec.Embedding = vec
		}
	}

	if err := r.store.SaveMemory(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist memory: %w", err)
	}
	r.log.Infof("saved %s memory for user %s: %s", rec.ImportanceLevel, userID, rec.EventType)
	return rec, nil
}
