package memory

import (
	"strings"
	"unicode/utf8"

	"github.com/kindredloop/kindred/internal/types"
)

// importanceRule maps a category of message content to an importance level.
type importanceRule struct {
	eventType  string
	importance types.ImportanceLevel
	keywords   []string
}

// Category order matters: the first matching rule wins.
var importanceRules = []importanceRule{
	{"birthday", types.ImportanceHigh, []string{"birthday", "born on", "turning "}},
	{"life_event", types.ImportanceHigh, []string{"got married", "graduated", "new job", "got promoted", "moved to", "broke up", "got engaged", "pregnant"}},
	{"relationship", types.ImportanceMedium, []string{"my mom", "my dad", "my mother", "my father", "my sister", "my brother", "my girlfriend", "my boyfriend", "my wife", "my husband", "best friend"}},
	{"preference", types.ImportanceMedium, []string{"favorite", "i love", "i really like", "i hate", "i can't stand", "i prefer"}},
	{"goal", types.ImportanceMedium, []string{"my goal", "i plan to", "i want to", "my dream", "i'm saving", "i am saving"}},
	{"emotion", types.ImportanceMedium, []string{"depressed", "anxious", "so sad", "really happy", "heartbroken", "stressed out"}},
}

var greetings = []string{
	"hi", "hello", "hey", "yo", "good morning", "good night", "good evening",
	"how are you", "what's up", "thanks", "thank you", "bye", "ok", "okay",
}

const maxSummaryChars = 200

// AnalyzeImportance is the rule-based importance fallback, used at most once
// per exchange and only when the unified orchestration call did not produce a
// verdict.
func AnalyzeImportance(text string) *types.MemoryAnalysis {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	// Short greetings never carry memorable content.
	if utf8.RuneCountInString(trimmed) < 20 {
		for _, g := range greetings {
			if lower == g || strings.HasPrefix(lower, g+" ") || strings.HasPrefix(lower, g+"!") || strings.HasPrefix(lower, g+",") {
				return &types.MemoryAnalysis{IsImportant: false, ImportanceLevel: types.ImportanceLow}
			}
		}
	}

	for _, rule := range importanceRules {
		var matched []string
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		return &types.MemoryAnalysis{
			IsImportant:     true,
			ImportanceLevel: rule.importance,
			EventType:       rule.eventType,
			EventSummary:    truncateRunes(trimmed, maxSummaryChars),
			Keywords:        matched,
		}
	}

	return &types.MemoryAnalysis{IsImportant: false, ImportanceLevel: types.ImportanceLow}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
