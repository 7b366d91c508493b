package strategy

import (
	"fmt"
	"strings"

	"github.com/kindredloop/kindred/internal/types"
)

// ProactiveMode is a directive nudging the reply toward initiating
// engagement rather than purely reacting.
type ProactiveMode string

const (
	ModeSupportive      ProactiveMode = "SUPPORTIVE"
	ModeGentleGuide     ProactiveMode = "GENTLE_GUIDE"
	ModeExploreInterest ProactiveMode = "EXPLORE_INTEREST"
	ModeDeepenTopic     ProactiveMode = "DEEPEN_TOPIC"
	ModeFindCommon      ProactiveMode = "FIND_COMMON"
	ModeShowCuriosity   ProactiveMode = "SHOW_CURIOSITY"
	ModeRecallMemory    ProactiveMode = "RECALL_MEMORY"
	ModeShareAndAsk     ProactiveMode = "SHARE_AND_ASK"
)

// ProactiveDirective is the chosen mode plus the context it keyed on.
type ProactiveDirective struct {
	Mode   ProactiveMode
	Topic  string
	Memory string
}

const maxTopicDepth = 5

// selectProactive runs the priority cascade once per turn; the
// highest-priority matching condition wins. A directive that duplicates the
// phase-chosen response type stays in the state but renders no extra
// guidance text.
func (e *Engine) selectProactive(in AnalyzeInput, state *State) *ProactiveDirective {
	return e.cascade(in, state)
}

func (e *Engine) cascade(in AnalyzeInput, state *State) *ProactiveDirective {
	topic, depth := currentTopic(in.ChatCtx, e.loader.Config().Engagement.Window)

	if state.EmotionType == EmotionNegative {
		return &ProactiveDirective{Mode: ModeSupportive}
	}
	if state.Engagement == EngagementLow {
		return &ProactiveDirective{Mode: ModeGentleGuide}
	}

	switch state.Stage {
	case StageOpening:
		return &ProactiveDirective{Mode: ModeExploreInterest}
	case StageExploring:
		if topic != "" && depth < 3 {
			return &ProactiveDirective{Mode: ModeDeepenTopic, Topic: topic}
		}
		return &ProactiveDirective{Mode: ModeExploreInterest}
	case StageDeepening:
		if topic != "" && depth >= 3 {
			return &ProactiveDirective{Mode: ModeFindCommon, Topic: topic}
		}
		if state.Engagement == EngagementHigh {
			return &ProactiveDirective{Mode: ModeShowCuriosity, Topic: topic}
		}
		return &ProactiveDirective{Mode: ModeDeepenTopic, Topic: topic}
	default: // ESTABLISHED
		if len(in.Memories) > 0 {
			return &ProactiveDirective{Mode: ModeRecallMemory, Memory: in.Memories[0].Summary}
		}
		if topic != "" {
			return &ProactiveDirective{Mode: ModeShareAndAsk, Topic: topic}
		}
		return &ProactiveDirective{Mode: ModeFindCommon}
	}
}

// duplicatesResponseType suppresses guidance the response type already
// carries, so the final prompt never says the same thing twice.
func duplicatesResponseType(mode ProactiveMode, rt ResponseType) bool {
	switch mode {
	case ModeSupportive:
		return rt == ResponseComfort
	case ModeGentleGuide:
		return rt == ResponseGentleGuidance
	default:
		return false
	}
}

// currentTopic finds the dominant topic over the recent window and how many
// consecutive recent user turns stayed on it, capped at maxTopicDepth.
func currentTopic(chatCtx *types.ChatContext, window int) (string, int) {
	if chatCtx == nil || len(chatCtx.History) == 0 {
		return "", 0
	}
	if window <= 0 {
		window = 6
	}
	start := len(chatCtx.History) - window
	if start < 0 {
		start = 0
	}

	var lastTopic string
	depth := 0
	for _, msg := range chatCtx.History[start:] {
		if msg.Role != "user" {
			continue
		}
		topic := topicOf(msg.Content)
		if topic == "" {
			continue
		}
		if topic == lastTopic {
			depth++
		} else {
			lastTopic = topic
			depth = 1
		}
	}
	if depth > maxTopicDepth {
		depth = maxTopicDepth
	}
	return lastTopic, depth
}

// topicOf reuses the summarizer's topic lexicon shape with a compact local
// set; the first matching label wins.
var proactiveTopics = []struct {
	label string
	words []string
}{
	{"work", []string{"work", "job", "boss", "office", "project"}},
	{"family", []string{"family", "mom", "dad", "parents", "sister", "brother"}},
	{"hobbies", []string{"game", "movie", "music", "book", "cooking", "guitar"}},
	{"study", []string{"school", "exam", "class", "study", "university"}},
	{"travel", []string{"travel", "trip", "vacation", "flight"}},
}

func topicOf(content string) string {
	lower := strings.ToLower(content)
	for _, t := range proactiveTopics {
		for _, w := range t.words {
			if strings.Contains(lower, w) {
				return t.label
			}
		}
	}
	return ""
}

// Guidance renders the directive as prompt guidance.
func (d *ProactiveDirective) Guidance() string {
	switch d.Mode {
	case ModeSupportive:
		return "Proactive: stay supportive and low-pressure; do not probe."
	case ModeGentleGuide:
		return "Proactive: the user is quiet; offer an easy, low-effort opening."
	case ModeExploreInterest:
		return "Proactive: gently explore what the user is interested in."
	case ModeDeepenTopic:
		return fmt.Sprintf("Proactive: go one level deeper on %s.", orTheCurrentTopic(d.Topic))
	case ModeFindCommon:
		return fmt.Sprintf("Proactive: find common ground around %s.", orTheCurrentTopic(d.Topic))
	case ModeShowCuriosity:
		return "Proactive: show genuine curiosity about the details."
	case ModeRecallMemory:
		return fmt.Sprintf("Proactive: naturally bring up a shared memory: %s.", d.Memory)
	case ModeShareAndAsk:
		return fmt.Sprintf("Proactive: share a small thought of your own about %s, then ask back.", orTheCurrentTopic(d.Topic))
	default:
		return ""
	}
}

func orTheCurrentTopic(topic string) string {
	if topic == "" {
		return "the current topic"
	}
	return topic
}
