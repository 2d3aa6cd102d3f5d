package orchestrator

// #region imports
import (
	"fmt"
	"strings"

	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region build-prompt

// BuildPrompt assembles the generation request: user input, up to maxMemories
// relevant memories in the order supplied, the target triad, and — when a
// prior attempt exists — a corrective digest of the immediately preceding
// failure.
func BuildPrompt(input string, memories []memory.Exchange, target triad.Score, prev *AttemptRecord, maxMemories int) string {
	var b strings.Builder

	b.WriteString("You are responding to a user with relational awareness.\n\n")
	b.WriteString("User message: ")
	b.WriteString(input)
	b.WriteString("\n\n")

	b.WriteString("Relevant memories from our relationship:\n")
	for i, m := range memories {
		if i == maxMemories {
			break
		}
		fmt.Fprintf(&b, "- %s\n", m.Content)
	}

	b.WriteString("\nTarget relational balance for this response:\n")
	fmt.Fprintf(&b, "- Kindness: %.2f (care and harm-awareness)\n", target.Kindness)
	fmt.Fprintf(&b, "- Freedom: %.2f (user autonomy and choice)\n", target.Freedom)
	fmt.Fprintf(&b, "- Truth: %.2f (accuracy and honesty)\n", target.Truth)

	if prev != nil {
		b.WriteString(failureDigest(*prev))
	}

	b.WriteString("\nGenerate a response that naturally embodies this balance. Be authentic, not formulaic.")
	return b.String()
}

// #endregion

// #region failure-digest

// failureDigest renders the one-step corrective context: the previous
// failure reason plus the three scored components.
func failureDigest(prev AttemptRecord) string {
	return fmt.Sprintf(`
Previous attempt failed: %s
Previous response scored: %s

Learn from this and adjust your approach.
`, prev.Failure, prev.Triad)
}

// #endregion
