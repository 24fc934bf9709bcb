package model

// ScoringGuidance describes what each rubric level looks like for a requirement
type ScoringGuidance struct {
	Absent    string `json:"absent" yaml:"absent"`
	Mentioned string `json:"mentioned" yaml:"mentioned"`
	Partial   string `json:"partial" yaml:"partial"`
	Thorough  string `json:"thorough" yaml:"thorough"`
}

// Level returns the guidance text for a score level
func (g ScoringGuidance) Level(l ScoreLevel) string {
	switch l {
	case ScoreAbsent:
		return g.Absent
	case ScoreMentioned:
		return g.Mentioned
	case ScorePartial:
		return g.Partial
	case ScoreThorough:
		return g.Thorough
	default:
		return ""
	}
}

// Requirement is one scorable rubric entry. Loaded once and never mutated.
type Requirement struct {
	ID              string          `json:"id" yaml:"id"`
	Framework       string          `json:"framework" yaml:"framework"`
	Category        string          `json:"category" yaml:"category"`
	ShortName       string          `json:"short_name" yaml:"short_name"`
	Description     string          `json:"description" yaml:"description"`
	ScoringGuidance ScoringGuidance `json:"scoring_guidance" yaml:"scoring_guidance"`
	GoldExamples    []string        `json:"gold_examples,omitempty" yaml:"gold_examples,omitempty"` // Passages that would score THOROUGH
}
