package ai

import (
	"fmt"
	"strings"
)

// HistoryWindow is the number of prior turns forwarded to the provider.
// Older context is dropped for cost and latency, not correctness.
const HistoryWindow = 5

// Turn is one prior exchange as seen by the conversation builder.
type Turn struct {
	IsUser bool
	Text   string
}

const personaPrompt = `You are an empathetic AI assistant. The user is currently feeling %s.
Adjust your response tone and content to be appropriate for their emotional state.
If they're feeling negative emotions (sad, angry, fearful), be extra supportive and understanding.
If they're feeling positive emotions (happy, excited), match their enthusiasm.
If they're neutral, maintain a balanced and professional tone.
Always maintain a helpful and professional demeanor while showing emotional intelligence.`

// BuildMessages assembles the provider conversation: persona system prompt
// with the current mood injected, then the last HistoryWindow turns in
// chronological order, then the current input as the final user turn.
func BuildMessages(mood string, history []Turn, userInput string) []Message {
	mood = strings.TrimSpace(strings.ToLower(mood))
	if mood == "" || mood == "unknown" {
		mood = "neutral"
	}

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf(personaPrompt, mood),
	})

	for _, t := range history {
		role := RoleAssistant
		if t.IsUser {
			role = RoleUser
		}
		msgs = append(msgs, Message{Role: role, Content: t.Text})
	}

	msgs = append(msgs, Message{Role: RoleUser, Content: userInput})
	return msgs
}
