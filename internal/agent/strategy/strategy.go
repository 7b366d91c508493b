// Package strategy computes the per-turn dialogue state: conversational
// phase, emotion, conversation type, stance, and a proactive-engagement
// directive. Classifiers are pluggable; the defaults are lexicon-based.
package strategy

import (
	"fmt"
	"strings"

	"github.com/kindredloop/kindred/internal/agent/agents"
	"github.com/kindredloop/kindred/internal/types"
)

// Phase is the turn-count view of conversation progress.
type Phase string

const (
	PhaseOpening    Phase = "OPENING"
	PhaseListening  Phase = "LISTENING"
	PhaseDeepening  Phase = "DEEPENING"
	PhaseSupporting Phase = "SUPPORTING"
)

// Stage is the relationship-depth view over the same threshold table.
type Stage string

const (
	StageOpening     Stage = "OPENING"
	StageExploring   Stage = "EXPLORING"
	StageDeepening   Stage = "DEEPENING"
	StageEstablished Stage = "ESTABLISHED"
)

// ResponseType is the reply posture chosen by phase and emotion.
type ResponseType string

const (
	ResponseComfort             ResponseType = "COMFORT"
	ResponseActiveListening     ResponseType = "ACTIVE_LISTENING"
	ResponseValidation          ResponseType = "VALIDATION"
	ResponseEmpathicQuestioning ResponseType = "EMPATHIC_QUESTIONING"
	ResponseGentleGuidance      ResponseType = "GENTLE_GUIDANCE"
)

// EmotionType classifies the current message's emotional charge.
type EmotionType string

const (
	EmotionPositive EmotionType = "positive"
	EmotionNegative EmotionType = "negative"
	EmotionNeutral  EmotionType = "neutral"
)

// Intensity grades an emotion.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// ConversationType classifies what the user is doing with this message.
type ConversationType string

const (
	TypeEmotionalVent      ConversationType = "EMOTIONAL_VENT"
	TypeOpinionDiscussion  ConversationType = "OPINION_DISCUSSION"
	TypeInfoRequest        ConversationType = "INFO_REQUEST"
	TypeDecisionConsulting ConversationType = "DECISION_CONSULTING"
	TypeCasualChat         ConversationType = "CASUAL_CHAT"
)

// Engagement grades how invested the user currently is.
type Engagement string

const (
	EngagementHigh   Engagement = "HIGH"
	EngagementMedium Engagement = "MEDIUM"
	EngagementLow    Engagement = "LOW"
)

// State is the full per-turn dialogue state. Ephemeral: recomputed each turn,
// never persisted directly.
type State struct {
	Phase            Phase
	Stage            Stage
	EmotionType      EmotionType
	EmotionIntensity Intensity
	ConversationType ConversationType
	ResponseType     ResponseType
	Engagement       Engagement
	Stance           *StanceAnalysis
	Proactive        *ProactiveDirective
}

// EmotionClassifier maps message text to (type, intensity).
type EmotionClassifier interface {
	ClassifyEmotion(text string) (EmotionType, Intensity)
}

// TypeClassifier maps message text to a conversation type.
type TypeClassifier interface {
	ClassifyType(text string) ConversationType
}

// Engine computes dialogue state. Safe for concurrent use; all state is
// read-only after construction except the hot-reloadable config.
type Engine struct {
	loader   *Loader
	emotions EmotionClassifier
	ctypes   TypeClassifier
}

// New creates an engine with the default lexicon classifiers over the
// loader's config.
func New(loader *Loader) *Engine {
	return &Engine{
		loader:   loader,
		emotions: &lexiconEmotions{loader: loader},
		ctypes:   &lexiconTypes{loader: loader},
	}
}

// SetEmotionClassifier swaps in a custom emotion classifier.
func (e *Engine) SetEmotionClassifier(c EmotionClassifier) { e.emotions = c }

// SetTypeClassifier swaps in a custom conversation-type classifier.
func (e *Engine) SetTypeClassifier(c TypeClassifier) { e.ctypes = c }

// AnalyzeInput carries everything one analysis needs.
type AnalyzeInput struct {
	Message  types.Message
	ChatCtx  *types.ChatContext
	Agent    agents.Agent         // responding agent, may be nil
	Memories []types.MemoryRecord // retrieved for this turn
}

// Analyze computes the dialogue state for the current turn.
func (e *Engine) Analyze(in AnalyzeInput) *State {
	userTurns := 1
	if in.ChatCtx != nil {
		userTurns = in.ChatCtx.UserTurns()
		if isUserTurnPending(in.ChatCtx, in.Message) {
			userTurns++
		}
	}

	state := &State{
		Phase: phaseFor(userTurns),
		Stage: stageFor(userTurns),
	}
	state.EmotionType, state.EmotionIntensity = e.emotions.ClassifyEmotion(in.Message.Content)
	state.ConversationType = e.ctypes.ClassifyType(in.Message.Content)
	state.ResponseType = responseTypeFor(state.Phase, state.EmotionType, state.EmotionIntensity)
	state.Engagement = engagementFor(in.ChatCtx, e.loader.Config().Engagement)

	if state.ConversationType == TypeOpinionDiscussion && in.Agent != nil {
		if holder, ok := in.Agent.(agents.ValueHolder); ok {
			if dims := holder.ValueDimensions(); dims != nil {
				state.Stance = analyzeStance(in.Message.Content, dims, state.ConversationType)
			}
		}
	}

	state.Proactive = e.selectProactive(in, state)
	return state
}

// isUserTurnPending reports whether the current message has not been
// appended to the history yet.
func isUserTurnPending(chatCtx *types.ChatContext, msg types.Message) bool {
	if len(chatCtx.History) == 0 {
		return true
	}
	last := chatCtx.History[len(chatCtx.History)-1]
	return last.Role != "user" || last.Content != msg.Content
}

// phaseFor and stageFor are two named views over one threshold table,
// counted over user turns including the current one.
func phaseFor(userTurns int) Phase {
	switch {
	case userTurns <= 3:
		return PhaseOpening
	case userTurns <= 5:
		return PhaseListening
	case userTurns <= 8:
		return PhaseDeepening
	default:
		return PhaseSupporting
	}
}

func stageFor(userTurns int) Stage {
	switch {
	case userTurns <= 3:
		return StageOpening
	case userTurns <= 5:
		return StageExploring
	case userTurns <= 10:
		return StageDeepening
	default:
		return StageEstablished
	}
}

// responseTypeFor is the fixed decision table over phase and emotion.
func responseTypeFor(phase Phase, emotion EmotionType, intensity Intensity) ResponseType {
	if emotion == EmotionNegative && intensity == IntensityHigh {
		return ResponseComfort
	}
	switch phase {
	case PhaseOpening:
		return ResponseActiveListening
	case PhaseListening:
		if emotion == EmotionNegative {
			return ResponseValidation
		}
		return ResponseActiveListening
	case PhaseDeepening:
		if emotion == EmotionNegative {
			return ResponseComfort
		}
		return ResponseEmpathicQuestioning
	default: // SUPPORTING
		switch emotion {
		case EmotionNegative:
			return ResponseComfort
		case EmotionPositive:
			return ResponseEmpathicQuestioning
		default:
			return ResponseGentleGuidance
		}
	}
}

func engagementFor(chatCtx *types.ChatContext, cfg EngagementConfig) Engagement {
	if chatCtx == nil || len(chatCtx.History) == 0 {
		return EngagementMedium
	}

	window := cfg.Window
	if window <= 0 {
		window = 6
	}
	start := len(chatCtx.History) - window
	if start < 0 {
		start = 0
	}

	total, count := 0, 0
	for _, msg := range chatCtx.History[start:] {
		if msg.Role != "user" {
			continue
		}
		total += len([]rune(msg.Content))
		count++
	}
	if count == 0 {
		return EngagementMedium
	}

	avg := float64(total) / float64(count)
	switch {
	case avg > float64(cfg.HighAvgChars):
		return EngagementHigh
	case avg < float64(cfg.LowAvgChars):
		return EngagementLow
	default:
		return EngagementMedium
	}
}

// Guidance renders the state as prompt guidance for the context builder.
func (s *State) Guidance() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation phase: %s. User emotion: %s (%s intensity). Conversation type: %s.\n",
		s.Phase, s.EmotionType, s.EmotionIntensity, s.ConversationType)
	fmt.Fprintf(&sb, "Respond in %s mode.", describeResponseType(s.ResponseType))
	if s.Stance != nil {
		fmt.Fprintf(&sb, "\n%s", s.Stance.Guidance())
	}
	if s.Proactive != nil && !duplicatesResponseType(s.Proactive.Mode, s.ResponseType) {
		fmt.Fprintf(&sb, "\n%s", s.Proactive.Guidance())
	}
	return sb.String()
}

func describeResponseType(rt ResponseType) string {
	switch rt {
	case ResponseComfort:
		return "comfort-first: acknowledge the feeling before anything else, keep advice minimal"
	case ResponseActiveListening:
		return "active listening: reflect what the user said and invite them to continue"
	case ResponseValidation:
		return "validation: affirm that the user's reaction makes sense"
	case ResponseEmpathicQuestioning:
		return "empathic questioning: ask one caring, open question"
	case ResponseGentleGuidance:
		return "gentle guidance: offer a small, practical next step without pushing"
	default:
		return string(rt)
	}
}
