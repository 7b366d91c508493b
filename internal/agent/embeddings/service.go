// Package embeddings provides the embedding-service collaborator: vector
// generation behind a Provider interface, with a SQLite-backed cache so a
// given text is only ever embedded once per model.
package embeddings

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrNoProvider indicates no embedding provider is configured. Memory
// retrieval degrades to the metadata path when it sees this.
var ErrNoProvider = errors.New("no embedding provider configured")

// Provider generates fixed-length embedding vectors.
type Provider interface {
	// Embed generates embeddings for the given texts
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding dimension size
	Dimensions() int
	// Model returns the model identifier
	Model() string
}

// Service generates embeddings through a Provider with write-through caching.
type Service struct {
	provider Provider
	cache    *Cache
	mu       sync.RWMutex
}

// NewService creates an embedding service. db may be nil, which disables
// caching but not embedding.
func NewService(db *sql.DB, provider Provider) *Service {
	return &Service{
		provider: provider,
		cache:    &Cache{db: db},
	}
}

// SetProvider swaps the embedding provider.
func (s *Service) SetProvider(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// Available reports whether an embedding provider is configured.
func (s *Service) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil
}

// Embed returns one vector per input text, consulting the cache first.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.RLock()
	provider := s.provider
	s.mu.RUnlock()

	if provider == nil {
		return nil, ErrNoProvider
	}
	if len(texts) == 0 {
		return nil, nil
	}

	model := provider.Model()
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := s.cache.Get(hashText(text), model); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vectors, err := provider.Embed(ctx, missTexts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), len(missTexts))
		}
		for j, vec := range vectors {
			results[missIdx[j]] = vec
			s.cache.Set(hashText(missTexts[j]), model, provider.Dimensions(), vec)
		}
	}

	return results, nil
}

// EmbedOne embeds a single text.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	results, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return results[0], nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Cache is a SQLite-backed embedding cache keyed by (content hash, model).
type Cache struct {
	db *sql.DB
}

// Get retrieves a cached embedding.
func (c *Cache) Get(contentHash, model string) ([]float32, bool) {
	if c.db == nil {
		return nil, false
	}

	var blob []byte
	err := c.db.QueryRow(
		`SELECT embedding FROM embedding_cache WHERE content_hash = ? AND model = ?`,
		contentHash, model,
	).Scan(&blob)
	if err != nil {
		return nil, false
	}

	vec, err := BlobToFloats(blob)
	if err != nil {
		return nil, false
	}
	return vec, true
}

// Set stores an embedding. Cache writes are best effort.
func (c *Cache) Set(contentHash, model string, dimensions int, embedding []float32) {
	if c.db == nil {
		return
	}
	_, _ = c.db.Exec(
		`INSERT OR REPLACE INTO embedding_cache (content_hash, model, dimensions, embedding, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		contentHash, model, dimensions, FloatsToBlob(embedding),
	)
}

// FloatsToBlob encodes a vector as little-endian float32 bytes.
func FloatsToBlob(floats []float32) []byte {
	buf := make([]byte, 4*len(floats))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BlobToFloats decodes a vector encoded by FloatsToBlob.
func BlobToFloats(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	floats := make([]float32, len(blob)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return floats, nil
}
