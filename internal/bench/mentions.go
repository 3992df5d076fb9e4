package bench

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"benchd/pkg/types"
)

// Targets is the outcome of resolving @mentions against the active models.
type Targets struct {
	Models []types.Model
	// Prompt is the text to send: mentions stripped and whitespace collapsed
	// when any mention matched, the original text otherwise.
	Prompt    string
	Mentioned bool
}

// ResolveTargets scans prompt for @Name mentions of the given models. A
// mention is case-insensitive and must be followed by end of text, whitespace
// or sentence punctuation. With no mention every model is targeted.
func ResolveTargets(prompt string, models []types.Model) Targets {
	type span struct {
		start, end int
		model      int
	}
	order := make([]int, len(models))
	for i := range order {
		order[i] = i
	}
	// Longer names first so "@GPT 4" is not claimed by "GPT".
	sort.SliceStable(order, func(a, b int) bool {
		return len(mentionName(models[order[a]])) > len(mentionName(models[order[b]]))
	})

	var spans []span
	overlaps := func(s, e int) bool {
		for _, sp := range spans {
			if s < sp.end && sp.start < e {
				return true
			}
		}
		return false
	}
	for _, idx := range order {
		name := mentionName(models[idx])
		if name == "" {
			continue
		}
		for _, loc := range mentionsOf(prompt, name) {
			if !mentionBoundary(prompt[loc[1]:]) || overlaps(loc[0], loc[1]) {
				continue
			}
			spans = append(spans, span{start: loc[0], end: loc[1], model: idx})
		}
	}
	if len(spans) == 0 {
		return Targets{Models: append([]types.Model(nil), models...), Prompt: prompt}
	}

	hit := make(map[int]bool, len(spans))
	for _, sp := range spans {
		hit[sp.model] = true
	}
	out := Targets{Mentioned: true}
	for i, m := range models {
		if hit[i] {
			out.Models = append(out.Models, m)
		}
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(prompt[last:sp.start])
		b.WriteByte(' ')
		last = sp.end
	}
	b.WriteString(prompt[last:])
	out.Prompt = strings.Join(strings.Fields(b.String()), " ")
	return out
}

// mentionsOf returns the byte ranges of every "@"+name in prompt, compared
// case-insensitively rune by rune.
func mentionsOf(prompt, name string) [][2]int {
	n := utf8.RuneCountInString(name)
	var out [][2]int
	for i := 0; i < len(prompt); {
		at := strings.IndexByte(prompt[i:], '@')
		if at < 0 {
			break
		}
		start := i + at
		end := start + 1
		for k := 0; k < n && end < len(prompt); k++ {
			_, size := utf8.DecodeRuneInString(prompt[end:])
			end += size
		}
		if strings.EqualFold(prompt[start+1:end], name) {
			out = append(out, [2]int{start, end})
			i = end
			continue
		}
		i = start + 1
	}
	return out
}

func mentionName(m types.Model) string {
	if n := strings.TrimSpace(m.Name); n != "" {
		return n
	}
	return strings.TrimSpace(m.ID)
}

const mentionPunct = ".,!?;:)]}\"'，。！？；：、"

func mentionBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r) || strings.ContainsRune(mentionPunct, r)
}
