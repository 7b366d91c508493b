package agents

import (
	"fmt"
	"sync"
)

// Pool is the in-memory agent registry. Agents are registered explicitly at
// startup; registration order is significant because the router uses it to
// break confidence ties.
type Pool struct {
	mu     sync.RWMutex
	byName map[string]Agent
	order  []string
}

// NewPool creates an empty agent pool.
func NewPool() *Pool {
	return &Pool{byName: make(map[string]Agent)}
}

// Register adds an agent. Duplicate names are rejected.
func (p *Pool) Register(a Agent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := a.Name()
	if name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	if _, exists := p.byName[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	p.byName[name] = a
	p.order = append(p.order, name)
	return nil
}

// Get returns the agent with the given name.
func (p *Pool) Get(name string) (Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.byName[name]
	return a, ok
}

// All returns every agent in registration order.
func (p *Pool) All() []Agent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Agent, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.byName[name])
	}
	return out
}

// Names returns the registered agent names in registration order.
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

// Len returns the number of registered agents.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}
