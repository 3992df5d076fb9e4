package provider

import (
	"strings"

	"benchd/pkg/types"
)

// renderPrompt flattens a chat into a ChatML transcript for backends that take
// a single prompt string. The trailing assistant header primes the reply.
func renderPrompt(msgs []types.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
