// Package skills holds the capability catalog used for skill disambiguation.
package skills

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kindredloop/kindred/internal/types"
)

// ErrDuplicateSkill is returned when a skill id is registered twice.
var ErrDuplicateSkill = errors.New("duplicate skill id")

// Skill describes one invocable capability.
type Skill struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	AgentName   string   `yaml:"agent_name" json:"agent_name"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Priority    int      `yaml:"priority" json:"priority"`
	Active      bool     `yaml:"active" json:"active"`
}

// Registry is the skill catalog. Registration order breaks score ties, so the
// catalog is built once at startup and only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]int
	skills []Skill
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Register adds a skill. Duplicate ids are rejected for the registry lifetime.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return fmt.Errorf("skill id must not be empty")
	}
	if _, exists := r.byID[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSkill, s.ID)
	}
	r.byID[s.ID] = len(r.skills)
	r.skills = append(r.skills, s)
	return nil
}

// Get returns a skill by id.
func (r *Registry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return Skill{}, false
	}
	return r.skills[idx], true
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// Match scores each active skill against the text and returns the top n.
// Score is the count of case-insensitive keyword occurrences weighted by
// priority; zero scores are excluded and ties keep registration order.
func (r *Registry) Match(text string, topN int) []types.SkillOption {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(text)

	type scored struct {
		option types.SkillOption
		order  int
	}
	var matches []scored

	for i, s := range r.skills {
		if !s.Active {
			continue
		}
		hits := 0
		for _, kw := range s.Keywords {
			if kw == "" {
				continue
			}
			hits += strings.Count(lower, strings.ToLower(kw))
		}
		if hits == 0 {
			continue
		}
		matches = append(matches, scored{
			option: types.SkillOption{
				SkillID:     s.ID,
				Name:        s.Name,
				Description: s.Description,
				Category:    s.Category,
				AgentName:   s.AgentName,
				Score:       float64(hits * max(s.Priority, 1)),
			},
			order: i,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].option.Score != matches[b].option.Score {
			return matches[a].option.Score > matches[b].option.Score
		}
		return matches[a].order < matches[b].order
	})

	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	options := make([]types.SkillOption, len(matches))
	for i, m := range matches {
		options[i] = m.option
	}
	return options
}

// BuildSelectionPrompt renders a numbered option list for the transport layer
// to display, grouped by category when more than one is present.
func BuildSelectionPrompt(options []types.SkillOption) string {
	if len(options) == 0 {
		return ""
	}

	categories := make(map[string]bool)
	for _, opt := range options {
		categories[opt.Category] = true
	}

	var sb strings.Builder
	sb.WriteString("I can help with several things here. Which one do you mean?\n")
	if len(categories) > 1 {
		byCategory := make(map[string][]types.SkillOption)
		var order []string
		for _, opt := range options {
			if _, seen := byCategory[opt.Category]; !seen {
				order = append(order, opt.Category)
			}
			byCategory[opt.Category] = append(byCategory[opt.Category], opt)
		}
		n := 1
		for _, cat := range order {
			fmt.Fprintf(&sb, "\n%s:\n", cat)
			for _, opt := range byCategory[cat] {
				fmt.Fprintf(&sb, "%d. %s - %s\n", n, opt.Name, opt.Description)
				n++
			}
		}
		return sb.String()
	}

	for i, opt := range options {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, opt.Name, opt.Description)
	}
	return sb.String()
}
