package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/agent/jsonx"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// Summarizer compresses mid-term turns into a RollingSummary, via the
// completion service when available and a keyword heuristic otherwise.
type Summarizer struct {
	provider ai.Provider // optional
	log      logging.Logger
}

// NewSummarizer creates a summarizer. provider may be nil, forcing the
// rule-based path.
func NewSummarizer(provider ai.Provider) *Summarizer {
	return &Summarizer{provider: provider, log: logging.For("summarizer")}
}

const summaryPrompt = `Summarize this conversation fragment for later recall. Reply with JSON only:
{"summary_text": "...", "key_topics": ["..."], "emotion_trajectory": "...", "user_needs": ["..."]}

Conversation:
%s`

// Summarize produces a rolling summary of the given turns. Never fails: any
// model problem falls back to rule-based extraction.
func (s *Summarizer) Summarize(ctx context.Context, turns []types.Message) *types.RollingSummary {
	if len(turns) == 0 {
		return nil
	}

	if s.provider != nil {
		if summary := s.summarizeWithModel(ctx, turns); summary != nil {
			return summary
		}
	}
	return ruleBasedSummary(turns)
}

func (s *Summarizer) summarizeWithModel(ctx context.Context, turns []types.Message) *types.RollingSummary {
	var sb strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}

	text, err := s.provider.Complete(ctx, &ai.ChatRequest{
		Messages:    []ai.ChatMessage{{Role: "user", Content: fmt.Sprintf(summaryPrompt, sb.String())}},
		MaxTokens:   400,
		Temperature: 0.2,
	})
	if err != nil {
		s.log.Warnf("model summary failed, using rule-based path: %v", err)
		return nil
	}

	var summary types.RollingSummary
	if err := jsonx.ExtractObject(text, &summary); err != nil {
		s.log.Warnf("model summary unparseable, using rule-based path: %v", err)
		return nil
	}
	if strings.TrimSpace(summary.SummaryText) == "" {
		return nil
	}
	return &summary
}

var topicLexicon = map[string][]string{
	"work":          {"work", "job", "boss", "office", "meeting", "colleague", "project", "deadline"},
	"family":        {"family", "mom", "dad", "mother", "father", "sister", "brother", "parents"},
	"relationships": {"girlfriend", "boyfriend", "partner", "date", "dating", "crush", "marriage"},
	"health":        {"sick", "doctor", "sleep", "tired", "gym", "exercise", "diet", "headache"},
	"hobbies":       {"game", "movie", "music", "book", "reading", "cooking", "painting", "guitar"},
	"study":         {"school", "exam", "class", "study", "homework", "university", "course"},
	"travel":        {"travel", "trip", "vacation", "flight", "hotel", "visit"},
}

var needLexicon = map[string][]string{
	"advice":    {"what should i", "any advice", "what do you think i", "should i"},
	"comfort":   {"sad", "lonely", "upset", "stressed", "anxious", "exhausted", "overwhelmed"},
	"listening": {"just want to talk", "need to vent", "let me tell you", "nobody listens"},
	"answers":   {"how do", "how does", "what is", "why is", "when is"},
}

var positiveWords = []string{"happy", "great", "awesome", "love", "excited", "glad", "wonderful", "fun", "good"}
var negativeWords = []string{"sad", "angry", "tired", "hate", "awful", "terrible", "lonely", "anxious", "stressed", "bad"}

// ruleBasedSummary extracts topics and needs by keyword counting and
// classifies the emotion trajectory from aggregate term counts.
func ruleBasedSummary(turns []types.Message) *types.RollingSummary {
	var userText strings.Builder
	for _, turn := range turns {
		if turn.Role == "user" {
			userText.WriteString(strings.ToLower(turn.Content))
			userText.WriteString("\n")
		}
	}
	text := userText.String()

	topics := topHits(text, topicLexicon, 3)
	needs := topHits(text, needLexicon, 2)

	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}

	trajectory := "flat"
	switch {
	case pos > 0 && pos > 2*neg:
		trajectory = "mostly positive"
	case neg > 0 && neg > 2*pos:
		trajectory = "mostly negative"
	case pos > 0 && neg > 0:
		trajectory = "mixed"
	}

	summaryText := fmt.Sprintf("Earlier the user talked over %d turns", len(turns))
	if len(topics) > 0 {
		summaryText += " about " + strings.Join(topics, ", ")
	}
	summaryText += "."

	return &types.RollingSummary{
		SummaryText:       summaryText,
		KeyTopics:         topics,
		EmotionTrajectory: trajectory,
		UserNeeds:         needs,
	}
}

func topHits(text string, lexicon map[string][]string, limit int) []string {
	type hit struct {
		label string
		count int
	}
	var hits []hit
	for label, words := range lexicon {
		count := 0
		for _, w := range words {
			count += strings.Count(text, w)
		}
		if count > 0 {
			hits = append(hits, hit{label, count})
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].count != hits[b].count {
			return hits[a].count > hits[b].count
		}
		return hits[a].label < hits[b].label
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	labels := make([]string, len(hits))
	for i, h := range hits {
		labels[i] = h.label
	}
	return labels
}
