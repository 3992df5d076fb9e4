package bench

import (
	"strings"

	"benchd/pkg/types"
)

// buildMessages assembles the conversation sent for one model: the system
// prompt, then one user/assistant pair per prior result, then the new prompt.
// A prior result without a response contributes only its user turn.
func buildMessages(system string, prior []types.BenchmarkResult, prompt string) []types.Message {
	msgs := make([]types.Message, 0, 2*len(prior)+2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: system})
	}
	for _, r := range prior {
		msgs = append(msgs, types.Message{Role: types.RoleUser, Content: r.Prompt})
		if r.Response != "" {
			msgs = append(msgs, types.Message{Role: types.RoleAssistant, Content: r.Response})
		}
	}
	return append(msgs, types.Message{Role: types.RoleUser, Content: prompt})
}

// historyBefore returns the results preceding id. Later results are left out
// of a retried turn's context.
func historyBefore(results []types.BenchmarkResult, id string) []types.BenchmarkResult {
	for i, r := range results {
		if r.ID == id {
			return results[:i]
		}
	}
	return results
}

// sessionTitle derives a chat title from the first runes of a prompt.
func sessionTitle(prompt string) string {
	p := strings.Join(strings.Fields(prompt), " ")
	r := []rune(p)
	if len(r) <= titleRunes {
		return p
	}
	return string(r[:titleRunes]) + "..."
}
