package model

// Framework names of the default rubric
const (
	FrameworkCoP       = "EU Code of Practice"
	FrameworkSTREAM    = "STREAM"
	FrameworkLabSafety = "Lab Safety Commitments"
)

// ModelReport is one document's full result.
// This schema is the hand-off to the dashboard and export tooling.
type ModelReport struct {
	ModelName     string             `json:"model_name"`
	ModelCardURL  *string            `json:"model_card_url"`    // null when the source map has no entry
	ModelCardPath string             `json:"model_card_source"` // Path the text was read from
	Scores        []RequirementScore `json:"scores"`

	CoPPercentage       float64 `json:"cop_percentage"`
	STREAMPercentage    float64 `json:"stream_percentage"`
	LabSafetyPercentage float64 `json:"lab_safety_percentage"`
	OverallPercentage   float64 `json:"overall_percentage"`

	FrameworkPercentages map[string]float64 `json:"framework_percentages,omitempty"` // Every framework in the rubric
}

// ScoreFor returns the score recorded for a requirement id
func (r *ModelReport) ScoreFor(id string) (RequirementScore, bool) {
	for _, s := range r.Scores {
		if s.RequirementID == id {
			return s, true
		}
	}
	return RequirementScore{}, false
}
