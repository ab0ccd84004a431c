package session

import (
	"github.com/pocketomega/rpg-assistant/internal/llm"
)

// ToMessages converts session turns into an ordered conversation history
// for Agent.Run, trimming the oldest turns until the total character count
// is within budget. budget == 0 means no limit. At least the most recent
// turn is always included, even when it alone exceeds the budget.
func ToMessages(turns []Turn, budget int, summary ...string) []llm.ConversationMessage {
	if len(turns) == 0 && (len(summary) == 0 || summary[0] == "") {
		return nil
	}

	start := 0 // first turn index to include

	if budget > 0 && len(turns) > 0 {
		total := 0
		for i := len(turns) - 1; i >= 0; i-- {
			cost := len([]rune(turns[i].UserMsg)) + len([]rune(turns[i].Assistant))
			if total+cost > budget {
				start = i + 1
				break
			}
			total += cost
		}
		if start >= len(turns) {
			start = len(turns) - 1
		}
	}

	var msgs []llm.ConversationMessage

	// The summary is prior context, not part of the live turn exchange, so
	// it goes in as its own system-role message rather than a user turn.
	if len(summary) > 0 && summary[0] != "" {
		msgs = append(msgs, llm.ConversationMessage{
			Role:    llm.RoleSystem,
			Content: "[earlier conversation summary]\n" + summary[0],
		})
	}

	for _, t := range turns[start:] {
		msgs = append(msgs,
			llm.ConversationMessage{Role: llm.RoleUser, Content: t.UserMsg},
			llm.ConversationMessage{Role: llm.RoleAssistant, Content: t.Assistant},
		)
	}
	return msgs
}
