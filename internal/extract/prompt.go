package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
)

const stageASystem = "You are extracting compliance-related claims from a model card. " +
	"Return only valid JSON."

// BuildPrompt constructs the Stage A messages for one requirement and chunk
func BuildPrompt(req model.Requirement, chunkText string) []llm.Message {
	var b strings.Builder

	b.WriteString("Requirement:\n")
	fmt.Fprintf(&b, "ID: %s\n", req.ID)
	fmt.Fprintf(&b, "Framework: %s\n", req.Framework)
	fmt.Fprintf(&b, "Description: %s\n\n", req.Description)

	b.WriteString("Chunk text:\n")
	b.WriteString(chunkText)
	b.WriteString("\n\n")

	b.WriteString("Task: Determine if this chunk contains information relevant to the requirement. " +
		"If relevant, extract concise claims and direct quotes. Quotes MUST be verbatim substrings " +
		"from the chunk text and must include character offsets.\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Do NOT restate the requirement text.\n")
	b.WriteString("- If there is no direct evidence in the chunk, set relevant=false and return empty lists.\n")
	b.WriteString("- Provide offsets as 0-indexed character positions in the chunk text (end is exclusive).\n")
	b.WriteString("- All strings must be single-line; replace any newlines with spaces.\n\n")

	b.WriteString("Return JSON with keys: relevant (boolean), claims (list of strings), " +
		"quote_spans (list of objects with keys: quote, start, end).")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: stageASystem},
		{Role: llm.RoleUser, Content: b.String()},
	}
}
