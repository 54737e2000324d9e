package inference

import (
	"regexp"
	"strings"
)

// promptHeader instructs the model; the trailing format lines give it two
// worked examples to imitate.
const promptHeader = "Estimate Japanese-style pronunciation of these words, and output in the specified format. Don't include any other texts."

var promptFormat = []string{"word=ワード", "helmet=ヘルメット"}

// resultPattern matches one "word=pronunciation" answer line.
var resultPattern = regexp.MustCompile(`(?m)^([a-z]+)=(.+)$`)

// BuildPrompt renders the batch prompt for words.
func BuildPrompt(words []string) string {
	lines := make([]string, 0, len(words)+4)
	lines = append(lines, promptHeader, "Words:")
	lines = append(lines, words...)
	lines = append(lines, "Format:")
	lines = append(lines, promptFormat...)
	return strings.Join(lines, "\n")
}

// ParseResponse extracts "word=pronunciation" lines from a model reply.
// Lines in any other shape are ignored. When a word appears twice the last
// answer wins. Carriage returns and surrounding whitespace are stripped from
// the pronunciation.
func ParseResponse(text string) map[string]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := make(map[string]string)
	for _, m := range resultPattern.FindAllStringSubmatch(text, -1) {
		pron := strings.TrimSpace(m[2])
		if pron == "" {
			continue
		}
		out[m[1]] = pron
	}
	return out
}

// Filter keeps only entries of raw whose key was submitted. Backends
// sometimes echo the format examples or invent words.
func Filter(raw map[string]string, words []string) map[string]string {
	want := make(map[string]struct{}, len(words))
	for _, w := range words {
		want[w] = struct{}{}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if _, ok := want[k]; ok {
			out[k] = v
		}
	}
	return out
}
