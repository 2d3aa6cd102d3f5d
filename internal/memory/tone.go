package memory

import "strings"

// #region tone-lexicon

var toneLexicon = []struct {
	tone  string
	words []string
}{
	{"angry", []string{"angry", "furious", "hate"}},
	{"sad", []string{"sad", "depressed", "hurt"}},
	{"joyful", []string{"happy", "excited", "love"}},
	{"anxious", []string{"worried", "anxious", "scared"}},
}

// #endregion tone-lexicon

// #region infer-tone

// InferTone is a keyword heuristic for the emotional tone of a message.
// First matching tone wins; defaults to "neutral".
func InferTone(message string) string {
	lower := strings.ToLower(message)
	for _, entry := range toneLexicon {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.tone
			}
		}
	}
	return "neutral"
}

// #endregion infer-tone
