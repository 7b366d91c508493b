package strategy

import (
	"fmt"
	"strings"

	"github.com/kindredloop/kindred/internal/types"
)

// StanceStrategy is the posture taken toward a user's stated position.
type StanceStrategy string

const (
	StanceAgree               StanceStrategy = "AGREE"
	StanceAgreeAndAdd         StanceStrategy = "AGREE_AND_ADD"
	StancePartialAgree        StanceStrategy = "PARTIAL_AGREE"
	StanceRespectfulDisagree  StanceStrategy = "RESPECTFUL_DISAGREE"
	StanceChallenge           StanceStrategy = "CHALLENGE"
	StanceComfortFirst        StanceStrategy = "COMFORT_FIRST"
)

// ConflictLevel grades how far apart the user and the agent stand.
type ConflictLevel string

const (
	ConflictLow    ConflictLevel = "low"
	ConflictMedium ConflictLevel = "medium"
	ConflictHigh   ConflictLevel = "high"
)

// StanceAnalysis is the outcome of comparing the user's position with the
// agent's declared stance on the matched topic.
type StanceAnalysis struct {
	Topic         string
	AgentPosition string
	Conflict      ConflictLevel
	Strategy      StanceStrategy
}

var supportWords = []string{"i agree", "i love", "i support", "is great", "is good", "is amazing", "totally right", "makes sense"}
var opposeWords = []string{"i disagree", "i hate", "is wrong", "is bad", "is terrible", "is stupid", "don't believe", "makes no sense", "overrated"}

// analyzeStance matches the message against the agent's declared stance
// topics and picks a response posture from a fixed decision table. Emotional
// venting always overrides to comfort-first.
func analyzeStance(text string, dims *types.ValueDimensions, ctype ConversationType) *StanceAnalysis {
	lower := strings.ToLower(text)

	var matched *types.Stance
	for i := range dims.Stances {
		if strings.Contains(lower, strings.ToLower(dims.Stances[i].Topic)) {
			matched = &dims.Stances[i]
			break
		}
	}
	if matched == nil {
		return nil
	}

	if ctype == TypeEmotionalVent {
		return &StanceAnalysis{
			Topic:         matched.Topic,
			AgentPosition: matched.Position,
			Conflict:      ConflictLow,
			Strategy:      StanceComfortFirst,
		}
	}

	conflict := conflictFor(lower, matched)
	return &StanceAnalysis{
		Topic:         matched.Topic,
		AgentPosition: matched.Position,
		Conflict:      conflict,
		Strategy:      strategyFor(conflict, dims, matched),
	}
}

// conflictFor estimates disagreement from the user's expressed polarity.
// An unreadable position counts as medium: worth hedging, not fighting.
func conflictFor(lower string, stance *types.Stance) ConflictLevel {
	userSupports := containsAny(lower, supportWords)
	userOpposes := containsAny(lower, opposeWords)

	switch {
	case userSupports == userOpposes:
		return ConflictMedium
	case userOpposes:
		return ConflictHigh
	default:
		return ConflictLow
	}
}

func strategyFor(conflict ConflictLevel, dims *types.ValueDimensions, stance *types.Stance) StanceStrategy {
	switch conflict {
	case ConflictLow:
		if dims.Preferences.AgreeFirst {
			return StanceAgreeAndAdd
		}
		return StanceAgree
	case ConflictMedium:
		if dims.Assertiveness >= 5 {
			return StancePartialAgree
		}
		return StanceAgreeAndAdd
	default: // high
		if dims.Assertiveness >= 9 && stance.Confidence >= 0.9 {
			return StanceChallenge
		}
		if dims.Assertiveness >= 7 && stance.Confidence >= 0.8 {
			return StanceRespectfulDisagree
		}
		return StancePartialAgree
	}
}

// Guidance renders the stance analysis as prompt guidance.
func (s *StanceAnalysis) Guidance() string {
	switch s.Strategy {
	case StanceComfortFirst:
		return fmt.Sprintf("The user is venting about %s. Comfort first; keep your own position out of it.", s.Topic)
	case StanceAgree:
		return fmt.Sprintf("You agree with the user about %s. Say so plainly.", s.Topic)
	case StanceAgreeAndAdd:
		return fmt.Sprintf("Agree with the user about %s, then add your own angle: %s.", s.Topic, s.AgentPosition)
	case StancePartialAgree:
		return fmt.Sprintf("On %s, concede what is fair but keep your view: %s.", s.Topic, s.AgentPosition)
	case StanceRespectfulDisagree:
		return fmt.Sprintf("You see %s differently: %s. Disagree respectfully and explain why.", s.Topic, s.AgentPosition)
	case StanceChallenge:
		return fmt.Sprintf("Challenge the user's take on %s directly. Your position: %s.", s.Topic, s.AgentPosition)
	default:
		return ""
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
