package ai

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildMessagesInjectsMood(t *testing.T) {
	msgs := BuildMessages("sad", nil, "hello")
	if len(msgs) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Fatalf("first message role = %q, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "currently feeling sad") {
		t.Fatalf("system prompt missing mood: %q", msgs[0].Content)
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "hello" {
		t.Fatalf("final turn = %+v, want user hello", msgs[1])
	}
}

func TestBuildMessagesDefaultsToNeutral(t *testing.T) {
	for _, mood := range []string{"", "unknown", "  Unknown  "} {
		msgs := BuildMessages(mood, nil, "hi")
		if !strings.Contains(msgs[0].Content, "currently feeling neutral") {
			t.Fatalf("mood %q: system prompt = %q, want neutral", mood, msgs[0].Content)
		}
	}
}

func TestBuildMessagesNormalizesMoodCase(t *testing.T) {
	msgs := BuildMessages(" HAPPY ", nil, "hi")
	if !strings.Contains(msgs[0].Content, "currently feeling happy") {
		t.Fatalf("system prompt = %q, want lowercased happy", msgs[0].Content)
	}
}

func TestBuildMessagesCapsHistory(t *testing.T) {
	var history []Turn
	for i := 0; i < 12; i++ {
		history = append(history, Turn{
			IsUser: i%2 == 0,
			Text:   fmt.Sprintf("turn-%d", i),
		})
	}

	msgs := BuildMessages("neutral", history, "now")

	// system + 5 most recent turns + current input
	if len(msgs) != HistoryWindow+2 {
		t.Fatalf("got %d messages, want %d", len(msgs), HistoryWindow+2)
	}
	for i := 0; i < HistoryWindow; i++ {
		src := history[len(history)-HistoryWindow+i]
		got := msgs[1+i]
		if got.Content != src.Text {
			t.Fatalf("history slot %d = %q, want %q", i, got.Content, src.Text)
		}
		wantRole := RoleAssistant
		if src.IsUser {
			wantRole = RoleUser
		}
		if got.Role != wantRole {
			t.Fatalf("history slot %d role = %q, want %q", i, got.Role, wantRole)
		}
	}
	if last := msgs[len(msgs)-1]; last.Role != RoleUser || last.Content != "now" {
		t.Fatalf("final turn = %+v", last)
	}
}

func TestBuildMessagesShortHistoryKeptWhole(t *testing.T) {
	history := []Turn{
		{IsUser: true, Text: "a"},
		{IsUser: false, Text: "b"},
	}
	msgs := BuildMessages("angry", history, "c")
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[1].Content != "a" || msgs[2].Content != "b" {
		t.Fatalf("history out of order: %+v", msgs[1:3])
	}
}
