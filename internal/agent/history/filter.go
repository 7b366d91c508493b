// Package history cleans conversation history and compresses older turns
// into a rolling summary.
package history

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kindredloop/kindred/internal/types"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// defaultFillers are low-information utterances dropped when they make up
// the whole turn.
var defaultFillers = []string{
	"ok", "okay", "k", "kk", "lol", "haha", "hahaha", "hmm", "hm", "yeah",
	"yep", "yes", "no", "nah", "uh", "oh", "wow", "nice", "cool", "sure",
	"thanks", "thx", "ty", "np", "brb", "gtg",
}

// FilterConfig tunes the per-turn filter.
type FilterConfig struct {
	// MinUserChars drops user turns shorter than this many runes.
	MinUserChars int `yaml:"min_user_chars"`
	// LinkRatio is the link-character share above which a turn collapses
	// to a links placeholder.
	LinkRatio float64 `yaml:"link_ratio"`
	// Fillers replaces the default low-information utterance set.
	Fillers []string `yaml:"fillers"`
}

// Filter removes low-information turns.
type Filter struct {
	cfg     FilterConfig
	fillers map[string]bool
}

// NewFilter creates a filter with defaults for unset fields.
func NewFilter(cfg FilterConfig) *Filter {
	if cfg.MinUserChars <= 0 {
		cfg.MinUserChars = 5
	}
	if cfg.LinkRatio <= 0 {
		cfg.LinkRatio = 0.7
	}
	fillers := cfg.Fillers
	if len(fillers) == 0 {
		fillers = defaultFillers
	}
	set := make(map[string]bool, len(fillers))
	for _, f := range fillers {
		set[f] = true
	}
	return &Filter{cfg: cfg, fillers: set}
}

// Apply filters the history, returning kept turns in order. Rules run per
// turn, in order: empty content drops; a trivial filler that is the whole
// turn (at most 20 runes) drops; a turn that is mostly links collapses to a
// placeholder; short user turns drop; anything else is kept with embedded
// links replaced by a placeholder token.
func (f *Filter) Apply(turns []types.Message) []types.Message {
	var kept []types.Message
	for _, turn := range turns {
		if msg, ok := f.filterTurn(turn); ok {
			kept = append(kept, msg)
		}
	}
	return kept
}

func (f *Filter) filterTurn(turn types.Message) (types.Message, bool) {
	content := strings.TrimSpace(turn.Content)
	if content == "" {
		return turn, false
	}

	if utf8.RuneCountInString(content) <= 20 {
		normalized := strings.ToLower(strings.Trim(content, ".,!?~ "))
		if f.fillers[normalized] {
			return turn, false
		}
	}

	links := urlPattern.FindAllString(content, -1)
	if len(links) > 0 {
		linkChars := 0
		for _, l := range links {
			linkChars += len(l)
		}
		if float64(linkChars)/float64(len(content)) >= f.cfg.LinkRatio {
			turn.Content = fmt.Sprintf("[%d links shared]", len(links))
			return turn, true
		}
	}

	if turn.Role == "user" && utf8.RuneCountInString(content) < f.cfg.MinUserChars {
		return turn, false
	}

	turn.Content = urlPattern.ReplaceAllString(content, "[link]")
	return turn, true
}

// SplitConfig tunes the short-term/mid-term split.
type SplitConfig struct {
	ShortTermTurns int `yaml:"short_term_turns"` // user turns kept verbatim
	MidTermTurns   int `yaml:"mid_term_turns"`   // older turns to summarize
}

// Split divides filtered history into the verbatim short-term window and the
// older mid-term slice to be summarized. The short-term window is the last
// shortTermTurns user turns and every turn after the first of them.
func Split(turns []types.Message, cfg SplitConfig) (shortTerm, midTerm []types.Message) {
	if cfg.ShortTermTurns <= 0 {
		cfg.ShortTermTurns = 5
	}
	if cfg.MidTermTurns <= 0 {
		cfg.MidTermTurns = 15
	}

	cut := 0
	userSeen := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" {
			userSeen++
			if userSeen == cfg.ShortTermTurns {
				cut = i
				break
			}
		}
	}
	if userSeen < cfg.ShortTermTurns {
		return turns, nil
	}

	shortTerm = turns[cut:]
	older := turns[:cut]
	if len(older) > cfg.MidTermTurns {
		older = older[len(older)-cfg.MidTermTurns:]
	}
	return shortTerm, older
}
