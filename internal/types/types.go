// Package types holds the core data model shared across the engine:
// messages, chat context, agent responses, orchestration results, and
// persisted memory records.
package types

import "time"

// Message is a single inbound or historical chat turn. Immutable once
// created; produced by the transport collaborator.
type Message struct {
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Timestamp time.Time `json:"timestamp"`
	Mentions  []string  `json:"mentions,omitempty"`
}

// ChatContext carries the conversation state for one orchestration call.
type ChatContext struct {
	ChatID       string    `json:"chat_id"`
	BotID        string    `json:"bot_id"`
	History      []Message `json:"history"`
	SystemPrompt string    `json:"system_prompt"`
}

// UserTurns counts the user messages in the history.
func (c *ChatContext) UserTurns() int {
	n := 0
	for i := range c.History {
		if c.History[i].Role == "user" {
			n++
		}
	}
	return n
}

// AgentResponse is what an agent returns for a message. ShouldContinue=false
// tells the router to stop escalating to lower-priority agents.
type AgentResponse struct {
	Content        string         `json:"content"`
	AgentName      string         `json:"agent_name"`
	Confidence     float64        `json:"confidence"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ShouldContinue bool           `json:"should_continue"`
}

// IntentType classifies how an orchestration call was resolved.
type IntentType string

const (
	IntentDirectResponse IntentType = "DIRECT_RESPONSE"
	IntentSingleAgent    IntentType = "SINGLE_AGENT"
	IntentMultiAgent     IntentType = "MULTI_AGENT"
	IntentSkillSelection IntentType = "SKILL_SELECTION"
)

// IntentSource records the provenance of a routing decision.
type IntentSource string

const (
	SourceRuleBased IntentSource = "RULE_BASED"
	SourceLLMBased  IntentSource = "LLM_BASED"
	SourceFallback  IntentSource = "FALLBACK"
)

// ImportanceLevel grades how much a turn is worth remembering.
type ImportanceLevel string

const (
	ImportanceLow      ImportanceLevel = "low"
	ImportanceMedium   ImportanceLevel = "medium"
	ImportanceHigh     ImportanceLevel = "high"
	ImportanceCritical ImportanceLevel = "critical"
)

// AtLeast reports whether l is at or above the given threshold.
func (l ImportanceLevel) AtLeast(threshold ImportanceLevel) bool {
	return l.rank() >= threshold.rank()
}

func (l ImportanceLevel) rank() int {
	switch l {
	case ImportanceCritical:
		return 3
	case ImportanceHigh:
		return 2
	case ImportanceMedium:
		return 1
	default:
		return 0
	}
}

// MemoryAnalysis is the importance verdict for the current exchange. It is
// produced once by the unified orchestration call, or once by the rule-based
// fallback, never both.
type MemoryAnalysis struct {
	IsImportant       bool            `json:"is_important"`
	ImportanceLevel   ImportanceLevel `json:"importance_level"`
	EventType         string          `json:"event_type"`
	EventSummary      string          `json:"event_summary"`
	Keywords          []string        `json:"keywords,omitempty"`
	EventDate         string          `json:"event_date,omitempty"`
	RawDateExpression string          `json:"raw_date_expression,omitempty"`
}

// ConversationSummary is the rolling-summary fragment the unified call emits.
type ConversationSummary struct {
	SummaryText string   `json:"summary_text"`
	KeyElements []string `json:"key_elements,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	UserState   string   `json:"user_state,omitempty"`
}

// SkillOption is one ranked entry in a skill-selection prompt.
type SkillOption struct {
	SkillID     string  `json:"skill_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	AgentName   string  `json:"agent_name"`
	Score       float64 `json:"score"`
}

// OrchestrationResult is the outcome of one Process call. Exactly one
// IntentType is set; MemoryAnalysis is nil when IntentSource is FALLBACK.
type OrchestrationResult struct {
	IntentType          IntentType           `json:"intent_type"`
	IntentSource        IntentSource         `json:"intent_source"`
	FinalResponse       string               `json:"final_response"`
	ReplyParts          []string             `json:"reply_parts,omitempty"`
	AgentResponses      []*AgentResponse     `json:"agent_responses,omitempty"`
	SkillOptions        []SkillOption        `json:"skill_options,omitempty"`
	MemoryAnalysis      *MemoryAnalysis      `json:"memory_analysis,omitempty"`
	Emotion             string               `json:"emotion,omitempty"`
	EmotionDescription  string               `json:"emotion_description,omitempty"`
	ConversationSummary *ConversationSummary `json:"conversation_summary,omitempty"`
}

// MemoryRecord is a persisted, embedded summary of a past exchange.
// Never mutated after creation except for the access counter.
type MemoryRecord struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	BotID           string          `json:"bot_id"`
	Summary         string          `json:"summary"`
	Embedding       []float32       `json:"-"`
	EventType       string          `json:"event_type"`
	EventDate       string          `json:"event_date,omitempty"`
	ImportanceLevel ImportanceLevel `json:"importance_level"`
	Keywords        []string        `json:"keywords,omitempty"`
	AccessCount     int             `json:"access_count"`
	CreatedAt       time.Time       `json:"created_at"`

	// Similarity is filled in by retrieval, not persisted.
	Similarity float64 `json:"similarity,omitempty"`
}

// RollingSummary compresses older conversation turns into a compact form.
type RollingSummary struct {
	SummaryText       string   `json:"summary_text"`
	KeyTopics         []string `json:"key_topics,omitempty"`
	EmotionTrajectory string   `json:"emotion_trajectory,omitempty"`
	UserNeeds         []string `json:"user_needs,omitempty"`
}

// Stance is an agent's declared position and confidence on a topic.
type Stance struct {
	Topic      string  `yaml:"topic" json:"topic"`
	Position   string  `yaml:"position" json:"position"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// ResponsePreferences tune how a bot expresses agreement and disagreement.
type ResponsePreferences struct {
	AgreeFirst     bool `yaml:"agree_first" json:"agree_first"`
	UseExamples    bool `yaml:"use_examples" json:"use_examples"`
	AskBeforeJudge bool `yaml:"ask_before_judge" json:"ask_before_judge"`
}

// ValueDimensions are the numeric personality traits a bot declares. A bot
// without value dimensions never takes a stance.
type ValueDimensions struct {
	Assertiveness int                 `yaml:"assertiveness" json:"assertiveness"` // 1..10
	Stances       []Stance            `yaml:"stances" json:"stances,omitempty"`
	Preferences   ResponsePreferences `yaml:"preferences" json:"preferences"`
}

// StanceFor returns the declared stance on a topic, if any.
func (v *ValueDimensions) StanceFor(topic string) (Stance, bool) {
	for _, s := range v.Stances {
		if s.Topic == topic {
			return s, true
		}
	}
	return Stance{}, false
}
