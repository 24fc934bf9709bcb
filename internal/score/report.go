package score

import (
	"math"

	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/rubric"
)

// FrameworkPercentage returns 100 * sum(scores) / (3 * len(ids)) rounded to
// two decimals. A requirement without a score counts as 0; an empty id list
// yields 0.
func FrameworkPercentage(scores []model.RequirementScore, ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}

	byID := make(map[string]model.ScoreLevel, len(scores))
	for _, s := range scores {
		byID[s.RequirementID] = s.Score
	}

	total := 0
	for _, id := range ids {
		total += int(byID[id])
	}

	pct := 100 * float64(total) / float64(int(model.MaxScore)*len(ids))
	return math.Round(pct*100) / 100
}

// BuildReport assembles the report for one document
func BuildReport(name, path string, url *string, rub *rubric.Rubric, scores []model.RequirementScore) *model.ModelReport {
	groups := rub.GroupByFramework()

	report := &model.ModelReport{
		ModelName:     name,
		ModelCardURL:  url,
		ModelCardPath: path,
		Scores:        scores,

		CoPPercentage:       FrameworkPercentage(scores, groups[model.FrameworkCoP]),
		STREAMPercentage:    FrameworkPercentage(scores, groups[model.FrameworkSTREAM]),
		LabSafetyPercentage: FrameworkPercentage(scores, groups[model.FrameworkLabSafety]),
		OverallPercentage:   FrameworkPercentage(scores, rub.IDs()),

		FrameworkPercentages: make(map[string]float64, len(groups)),
	}
	for framework, ids := range groups {
		report.FrameworkPercentages[framework] = FrameworkPercentage(scores, ids)
	}

	return report
}
