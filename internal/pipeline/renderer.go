package pipeline

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/rubric"
)

const rule = "═══════════════════════════════════════════════════════════"

// Renderer prints human-readable summaries of model reports
type Renderer struct {
	out io.Writer

	good *color.Color
	fair *color.Color
	poor *color.Color
	bold *color.Color
}

// NewRenderer creates a renderer writing to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:  out,
		good: color.New(color.FgGreen),
		fair: color.New(color.FgYellow),
		poor: color.New(color.FgRed),
		bold: color.New(color.Bold),
	}
}

// Leaderboard returns the reports sorted by overall percentage, highest
// first. Ties are broken by model name.
func Leaderboard(reports []*model.ModelReport) []*model.ModelReport {
	sorted := make([]*model.ModelReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OverallPercentage != sorted[j].OverallPercentage {
			return sorted[i].OverallPercentage > sorted[j].OverallPercentage
		}
		return sorted[i].ModelName < sorted[j].ModelName
	})
	return sorted
}

// RenderLeaderboard prints one row per report, best first
func (r *Renderer) RenderLeaderboard(reports []*model.ModelReport) {
	fmt.Fprintf(r.out, "\n%s\n", rule)
	r.bold.Fprintf(r.out, "  Leaderboard\n")
	fmt.Fprintf(r.out, "%s\n\n", rule)

	if len(reports) == 0 {
		fmt.Fprintf(r.out, "  No models scored\n\n")
		return
	}

	width := len("Model")
	for _, rep := range reports {
		width = max(width, len(rep.ModelName))
	}

	fmt.Fprintf(r.out, "  %-3s %-*s %8s %8s %8s %8s\n", "#", width, "Model", "CoP", "STREAM", "Lab", "Overall")
	for i, rep := range Leaderboard(reports) {
		fmt.Fprintf(r.out, "  %-3d %-*s %7.2f%% %7.2f%% %7.2f%% ", i+1, width, rep.ModelName,
			rep.CoPPercentage, rep.STREAMPercentage, rep.LabSafetyPercentage)
		r.colorFor(rep.OverallPercentage).Fprintf(r.out, "%7.2f%%", rep.OverallPercentage)
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out)
}

// RenderReport prints the per-requirement breakdown of one report
func (r *Renderer) RenderReport(report *model.ModelReport, rub *rubric.Rubric) {
	fmt.Fprintf(r.out, "\n%s\n", rule)
	r.bold.Fprintf(r.out, "  %s\n", report.ModelName)
	fmt.Fprintf(r.out, "%s\n\n", rule)

	if report.ModelCardURL != nil {
		fmt.Fprintf(r.out, "  Source:   %s\n", *report.ModelCardURL)
	}
	fmt.Fprintf(r.out, "  File:     %s\n\n", report.ModelCardPath)

	groups := rub.GroupByFramework()
	for _, framework := range rub.Frameworks() {
		pct := report.FrameworkPercentages[framework]
		fmt.Fprintf(r.out, "  %-28s ", framework)
		r.colorFor(pct).Fprintf(r.out, "%6.2f%%\n", pct)

		for _, id := range groups[framework] {
			rs, ok := report.ScoreFor(id)
			if !ok {
				continue
			}
			req, _ := rub.Get(id)
			fmt.Fprintf(r.out, "    %-14s %d/%d %-10s %s\n", id, rs.Score, model.MaxScore,
				rs.Score, req.ShortName)
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "  %-28s ", "Overall")
	r.colorFor(report.OverallPercentage).Fprintf(r.out, "%6.2f%%\n\n", report.OverallPercentage)
}

func (r *Renderer) colorFor(pct float64) *color.Color {
	switch {
	case pct >= 66.67:
		return r.good
	case pct >= 33.33:
		return r.fair
	default:
		return r.poor
	}
}
