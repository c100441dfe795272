package generate

import (
	"fmt"
	"strings"

	"github.com/searchive/searchive/internal/models"
)

// BuildPrompt assembles the full prompt in fixed order: instructions, context
// documents, conversation history, current question. The same request always
// yields the same prompt.
func BuildPrompt(req *Request) string {
	var b strings.Builder

	instructions := req.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}
	b.WriteString(instructions)
	b.WriteString("\n\n")

	if len(req.Passages) == 0 {
		b.WriteString("No relevant document content was found for this question.\n")
	} else {
		b.WriteString("Document excerpts:\n\n")
		for i, p := range req.Passages {
			fmt.Fprintf(&b, "Document %d (%s):\n%s\n\n", i+1, p.Filename, p.Excerpt)
		}
	}

	if len(req.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(msg.Role), msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", req.Question)
	return b.String()
}

func roleLabel(role string) string {
	if role == models.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
