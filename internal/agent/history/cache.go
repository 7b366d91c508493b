package history

import (
	"container/list"
	"sync"

	"github.com/kindredloop/kindred/internal/types"
)

// SummaryCache holds rolling summaries per (chat, bot) pair with a fixed
// capacity and oldest-first eviction, so long-running processes never grow
// without bound.
type SummaryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest
}

type cacheEntry struct {
	key     string
	summary *types.RollingSummary
}

// NewSummaryCache creates a cache with the given capacity (minimum 1).
func NewSummaryCache(capacity int) *SummaryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &SummaryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func summaryKey(chatID, botID string) string {
	return chatID + "|" + botID
}

// Get returns the cached summary for the pair, if present.
func (c *SummaryCache) Get(chatID, botID string) (*types.RollingSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[summaryKey(chatID, botID)]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).summary, true
}

// Put stores a summary, evicting the oldest insertion when full. Updating an
// existing key refreshes its position.
func (c *SummaryCache) Put(chatID, botID string, summary *types.RollingSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := summaryKey(chatID, botID)
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).summary = summary
		c.order.MoveToBack(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, summary: summary})
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
