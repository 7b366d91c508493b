package router

import (
	"sync"
	"time"
)

// cooldownMap tracks the last reply time per (agent, user) pair. sync.Map
// keeps locking at the key level so unrelated pairs never contend.
type cooldownMap struct {
	entries sync.Map // "agent|user" -> time.Time
}

func cooldownKey(agentName, userID string) string {
	return agentName + "|" + userID
}

// Active reports whether the pair is still inside the cooldown window.
func (c *cooldownMap) Active(agentName, userID string, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	v, ok := c.entries.Load(cooldownKey(agentName, userID))
	if !ok {
		return false
	}
	return time.Since(v.(time.Time)) < window
}

// Touch records a reply from the agent to the user.
func (c *cooldownMap) Touch(agentName, userID string) {
	c.entries.Store(cooldownKey(agentName, userID), time.Now())
}

// Sweep drops entries older than maxAge and returns how many were removed.
func (c *cooldownMap) Sweep(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	c.entries.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
