package model

// ScoreLevel is the ordered severity of a requirement's disclosure
type ScoreLevel int

const (
	ScoreAbsent    ScoreLevel = 0 // No disclosure
	ScoreMentioned ScoreLevel = 1 // Brief or vague reference
	ScorePartial   ScoreLevel = 2 // Some specifics, material gaps
	ScoreThorough  ScoreLevel = 3 // Comprehensive and specific
)

// MaxScore is the highest level a requirement can receive
const MaxScore = ScoreThorough

func (l ScoreLevel) String() string {
	switch l {
	case ScoreAbsent:
		return "ABSENT"
	case ScoreMentioned:
		return "MENTIONED"
	case ScorePartial:
		return "PARTIAL"
	case ScoreThorough:
		return "THOROUGH"
	default:
		return "INVALID"
	}
}

// Valid reports whether the level is one of the four rubric levels
func (l ScoreLevel) Valid() bool {
	return l >= ScoreAbsent && l <= ScoreThorough
}

// RequirementScore is the Stage B result for one requirement
type RequirementScore struct {
	RequirementID        string     `json:"requirement_id"`
	Score                ScoreLevel `json:"score"`
	Justification        string     `json:"justification"`
	Evidence             []string   `json:"evidence"`   // Subset of aggregated quotes
	Confidence           float64    `json:"confidence"` // 0.0 - 1.0
	Substantive          *bool      `json:"substantive,omitempty"`
	SubstantiveReasoning string     `json:"substantive_reasoning,omitempty"`
}
