package contextbuilder

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kindredloop/kindred/internal/types"
)

func userMsg(content string) types.Message {
	return types.Message{Role: "user", Content: content, UserID: "u1", ChatID: "c1"}
}

func botMsg(content string) types.Message {
	return types.Message{Role: "assistant", Content: content, ChatID: "c1"}
}

func TestBuildSystemSections(t *testing.T) {
	b := New(Config{}, nil)
	bundle := b.Build(context.Background(), Input{
		Persona: "You are Miso, a warm companion.",
		Message: userMsg("how was your day"),
		ChatCtx: &types.ChatContext{ChatID: "c1", BotID: "b1"},
		Memories: []types.MemoryRecord{
			{Summary: "works as a nurse"},
			{Summary: "has a cat named Pepper"},
		},
	})

	sections := strings.Split(bundle.System, "\n\n")
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2: %q", len(sections), bundle.System)
	}
	if sections[0] != "You are Miso, a warm companion." {
		t.Errorf("persona section = %q", sections[0])
	}
	if !strings.Contains(sections[1], "- works as a nurse") || !strings.Contains(sections[1], "- has a cat named Pepper") {
		t.Errorf("memory section = %q", sections[1])
	}

	if len(bundle.Messages) != 1 || bundle.Messages[0].Content != "how was your day" {
		t.Errorf("messages = %+v, want just the current message", bundle.Messages)
	}
}

func TestBuildCapsMemories(t *testing.T) {
	b := New(Config{}, nil)
	var memories []types.MemoryRecord
	for i := 0; i < 12; i++ {
		memories = append(memories, types.MemoryRecord{Summary: fmt.Sprintf("memory %d", i)})
	}
	bundle := b.Build(context.Background(), Input{
		Message:  userMsg("hello there friend"),
		ChatCtx:  &types.ChatContext{ChatID: "c1", BotID: "b1"},
		Memories: memories,
	})
	if got := strings.Count(bundle.System, "\n- "); got != DefaultMaxMemories {
		t.Errorf("rendered %d memories, want %d", got, DefaultMaxMemories)
	}
}

func TestBuildSummarizesMidTermAndCaches(t *testing.T) {
	b := New(Config{}, nil)

	var turns []types.Message
	for i := 1; i <= 9; i++ {
		turns = append(turns,
			userMsg(fmt.Sprintf("so much happening at work today, round %d", i)),
			botMsg("that sounds like a lot, tell me more"),
		)
	}
	chatCtx := &types.ChatContext{ChatID: "c1", BotID: "b1", History: turns}

	bundle := b.Build(context.Background(), Input{
		Message: userMsg("anyway, how are you"),
		ChatCtx: chatCtx,
	})

	if bundle.Summary == nil || bundle.Summary.SummaryText == "" {
		t.Fatalf("expected a rolling summary, got %+v", bundle.Summary)
	}
	if !strings.Contains(bundle.System, "Earlier in this conversation:") {
		t.Errorf("system prompt missing summary section: %q", bundle.System)
	}
	if cached, ok := b.Summary("c1", "b1"); !ok || cached != bundle.Summary {
		t.Error("summary not cached for the chat")
	}

	// The short-term window holds the last 5 user turns and their replies,
	// plus the current message.
	if len(bundle.Messages) != 11 {
		t.Errorf("got %d messages, want 11", len(bundle.Messages))
	}
}

func TestBuildTruncatesOldestToBudget(t *testing.T) {
	b := New(Config{TokenBudget: 200, ReplyReserve: 100}, nil)

	long := strings.Repeat("word ", 80)
	chatCtx := &types.ChatContext{ChatID: "c1", BotID: "b1", History: []types.Message{
		userMsg(long + "one"),
		botMsg(long + "two"),
		userMsg(long + "three"),
	}}
	current := userMsg(long + "four")

	bundle := b.Build(context.Background(), Input{Message: current, ChatCtx: chatCtx})
	if len(bundle.Messages) != 1 {
		t.Fatalf("got %d messages, want only the current one", len(bundle.Messages))
	}
	if !strings.HasSuffix(bundle.Messages[0].Content, "four") {
		t.Errorf("kept the wrong message: %q", bundle.Messages[0].Content)
	}
}

func TestBuildDoesNotDuplicateCurrentMessage(t *testing.T) {
	b := New(Config{}, nil)
	chatCtx := &types.ChatContext{ChatID: "c1", BotID: "b1", History: []types.Message{
		userMsg("already in the history right here"),
	}}
	bundle := b.Build(context.Background(), Input{
		Message: userMsg("already in the history right here"),
		ChatCtx: chatCtx,
	})
	if len(bundle.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(bundle.Messages))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello world!", 3},
		{"你好世界", 2},
		{strings.Repeat("a", 40), 10},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
