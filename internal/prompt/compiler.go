// Package prompt compiles a character's numeric personality profile into the
// natural-language system prompt sent ahead of the conversation history.
package prompt

import (
	"fmt"
	"strings"

	"lume-companion/backend/internal/models"
)

const closingInstructions = "Stay in character at all times. Keep your responses relatively concise. Be creative and engaging."

// Compile builds the system prompt for a character. Pure and deterministic:
// the same character always yields byte-identical output. Traits the
// character does not define produce neither a settings line nor a directive
// line.
func Compile(ch models.Character) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are roleplaying as %s. %s\n\n", ch.Name, ch.Description)

	b.WriteString("Your personality settings:\n")
	for _, trait := range models.Registry {
		value, ok := ch.Personality[trait.Key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d%% (%s)\n", trait.Label, value, models.BandFor(value))
	}

	b.WriteString("\nAdjust your responses to reflect these traits:\n")
	for _, trait := range models.Registry {
		value, ok := ch.Personality[trait.Key]
		if !ok {
			continue
		}
		directive := trait.Directive(models.BandFor(value))
		if directive == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", directive)
	}

	if ch.DefaultPrompt != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", ch.DefaultPrompt)
	}

	b.WriteString("\n" + closingInstructions)
	return b.String()
}
