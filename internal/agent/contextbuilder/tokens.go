package contextbuilder

import (
	"unicode"

	"github.com/kindredloop/kindred/internal/agent/ai"
)

const (
	// DefaultTokenBudget bounds the whole prompt bundle.
	DefaultTokenBudget = 8000
	// DefaultReplyReserve is held back from the budget for the reply.
	DefaultReplyReserve = 1000

	perMessageOverhead = 4
)

// EstimateTokens approximates the token cost of a text. CJK scripts run
// close to one token per 1.5 runes; everything else near one per 4.
func EstimateTokens(text string) int {
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return cjk*2/3 + other/4
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func messageTokens(msg ai.ChatMessage) int {
	return EstimateTokens(msg.Content) + perMessageOverhead
}

// truncateToBudget drops the oldest messages until the rest fit, always
// keeping at least the final message.
func truncateToBudget(msgs []ai.ChatMessage, budget int) []ai.ChatMessage {
	total := 0
	for _, m := range msgs {
		total += messageTokens(m)
	}
	start := 0
	for total > budget && start < len(msgs)-1 {
		total -= messageTokens(msgs[start])
		start++
	}
	return msgs[start:]
}
