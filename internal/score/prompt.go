package score

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
)

const stageBSystem = "You are scoring compliance disclosure quality. " +
	"Use the rubric and evidence. Return only valid JSON. " +
	"Beyond scoring presence of disclosure, also assess whether the disclosure is SUBSTANTIVE " +
	"(genuine safety work with meaningful detail) vs PERFORMATIVE (checkbox compliance, vague claims, " +
	"boilerplate language without specific commitments or results)."

// BuildPrompt constructs the Stage B messages for one requirement and its evidence
func BuildPrompt(req model.Requirement, ev model.Evidence) []llm.Message {
	var b strings.Builder
	g := req.ScoringGuidance

	b.WriteString("Requirement:\n")
	fmt.Fprintf(&b, "ID: %s\n", req.ID)
	fmt.Fprintf(&b, "Framework: %s\n", req.Framework)
	fmt.Fprintf(&b, "Short name: %s\n", req.ShortName)
	fmt.Fprintf(&b, "Description: %s\n\n", req.Description)

	b.WriteString("Scoring guidance:\n")
	for _, level := range []model.ScoreLevel{model.ScoreAbsent, model.ScoreMentioned, model.ScorePartial, model.ScoreThorough} {
		fmt.Fprintf(&b, "%s (%d): %s\n", level, int(level), g.Level(level))
	}
	b.WriteString("\n")

	b.WriteString("Extracted claims:\n")
	b.WriteString(jsonList(ev.Claims))
	b.WriteString("\n\n")
	b.WriteString("Evidence quotes:\n")
	b.WriteString(jsonList(ev.Quotes))
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Use only the provided evidence quotes; do not paraphrase or invent evidence.\n")
	b.WriteString("- Do NOT restate the requirement text as evidence.\n")
	b.WriteString("- All strings must be single-line; replace any newlines with spaces.\n\n")

	b.WriteString("Task: Assign a score 0-3 and justify using the evidence. " +
		"Also assess whether the disclosure appears SUBSTANTIVE (true=genuine detail, specific methods, " +
		"concrete results) or PERFORMATIVE (false=vague, boilerplate, no specifics).\n\n")

	b.WriteString("Return JSON with keys: requirement_id, score (0-3), justification, evidence (list of quotes), " +
		"confidence (0-1), substantive (boolean), substantive_reasoning (brief explanation).")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: stageBSystem},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	out, _ := json.Marshal(items)
	return string(out)
}
