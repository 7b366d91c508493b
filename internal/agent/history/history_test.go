package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kindredloop/kindred/internal/agent/ai"
	"github.com/kindredloop/kindred/internal/types"
)

func user(content string) types.Message {
	return types.Message{Role: "user", Content: content}
}

func assistant(content string) types.Message {
	return types.Message{Role: "assistant", Content: content}
}

func TestFilterRules(t *testing.T) {
	f := NewFilter(FilterConfig{})

	tests := []struct {
		name string
		in   types.Message
		keep bool
		want string
	}{
		{"empty", user("   "), false, ""},
		{"filler", user("ok"), false, ""},
		{"filler with punctuation", user("haha!!"), false, ""},
		{"short user turn", user("why"), false, ""},
		{"kept", user("I had a strange dream last night"), true, "I had a strange dream last night"},
		{"mostly links", user("https://example.com/a https://example.com/b"), true, "[2 links shared]"},
		{"embedded link", user("look at this https://example.com/article it explains everything"), true, "look at this [link] it explains everything"},
		{"assistant short turn kept", assistant("Oh?"), true, "Oh?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.Apply([]types.Message{tt.in})
			if tt.keep != (len(out) == 1) {
				t.Fatalf("kept = %v, want %v", len(out) == 1, tt.keep)
			}
			if tt.keep && out[0].Content != tt.want {
				t.Errorf("content = %q, want %q", out[0].Content, tt.want)
			}
		})
	}
}

func TestSplitShortAndMidTerm(t *testing.T) {
	var turns []types.Message
	for i := 1; i <= 12; i++ {
		turns = append(turns, user(fmt.Sprintf("user turn %d", i)), assistant(fmt.Sprintf("reply %d", i)))
	}

	shortTerm, midTerm := Split(turns, SplitConfig{ShortTermTurns: 5, MidTermTurns: 15})

	// Short term starts at the 5th-from-last user turn, i.e. user turn 8.
	if shortTerm[0].Content != "user turn 8" {
		t.Errorf("short term starts at %q, want user turn 8", shortTerm[0].Content)
	}
	if got := len(shortTerm); got != 10 {
		t.Errorf("short term length = %d, want 10", got)
	}
	if got := len(midTerm); got != 14 {
		t.Errorf("mid term length = %d, want 14", got)
	}
	if midTerm[len(midTerm)-1].Content != "reply 7" {
		t.Errorf("mid term ends at %q, want reply 7", midTerm[len(midTerm)-1].Content)
	}
}

func TestSplitShortConversationStaysVerbatim(t *testing.T) {
	turns := []types.Message{user("hello there friend"), assistant("hi"), user("how was your day really")}
	shortTerm, midTerm := Split(turns, SplitConfig{})
	if len(shortTerm) != len(turns) || len(midTerm) != 0 {
		t.Errorf("short conversation should not be summarized: short=%d mid=%d", len(shortTerm), len(midTerm))
	}
}

type scriptedProvider struct {
	reply string
	err   error
	calls int
}

func (p *scriptedProvider) ID() string { return "scripted" }
func (p *scriptedProvider) Complete(ctx context.Context, req *ai.ChatRequest) (string, error) {
	p.calls++
	return p.reply, p.err
}

func TestSummarizeWithModel(t *testing.T) {
	provider := &scriptedProvider{reply: `{"summary_text": "user vented about work", "key_topics": ["work"], "emotion_trajectory": "mostly negative", "user_needs": ["comfort"]}`}
	s := NewSummarizer(provider)

	summary := s.Summarize(context.Background(), []types.Message{user("my boss yelled at me again today")})
	if summary == nil {
		t.Fatal("expected summary")
	}
	if summary.SummaryText != "user vented about work" {
		t.Errorf("SummaryText = %q", summary.SummaryText)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestSummarizeFallsBackOnModelFailure(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("boom")}
	s := NewSummarizer(provider)

	turns := []types.Message{
		user("work has been awful, my boss moved the deadline again"),
		assistant("that sounds stressful"),
		user("i'm so tired and stressed, the office is chaos"),
	}
	summary := s.Summarize(context.Background(), turns)
	if summary == nil {
		t.Fatal("expected rule-based summary")
	}
	if !contains(summary.KeyTopics, "work") {
		t.Errorf("KeyTopics = %v, want to include work", summary.KeyTopics)
	}
	if summary.EmotionTrajectory != "mostly negative" {
		t.Errorf("EmotionTrajectory = %q, want mostly negative", summary.EmotionTrajectory)
	}
	if !strings.Contains(summary.SummaryText, "3 turns") {
		t.Errorf("SummaryText = %q", summary.SummaryText)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := NewSummarizer(nil)
	if summary := s.Summarize(context.Background(), nil); summary != nil {
		t.Errorf("Summarize(nil) = %v, want nil", summary)
	}
}

func TestSummaryCacheEvictsOldest(t *testing.T) {
	cache := NewSummaryCache(2)
	cache.Put("c1", "b", &types.RollingSummary{SummaryText: "one"})
	cache.Put("c2", "b", &types.RollingSummary{SummaryText: "two"})
	cache.Put("c3", "b", &types.RollingSummary{SummaryText: "three"})

	if _, ok := cache.Get("c1", "b"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.Get("c2", "b"); !ok {
		t.Error("c2 should survive")
	}
	if _, ok := cache.Get("c3", "b"); !ok {
		t.Error("c3 should survive")
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
}

func TestSummaryCacheUpdateRefreshes(t *testing.T) {
	cache := NewSummaryCache(2)
	cache.Put("c1", "b", &types.RollingSummary{SummaryText: "one"})
	cache.Put("c2", "b", &types.RollingSummary{SummaryText: "two"})
	cache.Put("c1", "b", &types.RollingSummary{SummaryText: "one updated"})
	cache.Put("c3", "b", &types.RollingSummary{SummaryText: "three"})

	if _, ok := cache.Get("c2", "b"); ok {
		t.Error("c2 became the oldest and should have been evicted")
	}
	if got, ok := cache.Get("c1", "b"); !ok || got.SummaryText != "one updated" {
		t.Errorf("c1 = %v, want updated entry", got)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
