// Package agreement compares automated rubric scores with human ratings.
package agreement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/ppiankov/cardaudit/internal/model"
)

// HumanScoresFile is the rater CSV read from the validation directory
const HumanScoresFile = "human_scores.csv"

// ErrMissingColumn is returned when the rater CSV lacks a required column
var ErrMissingColumn = errors.New("missing column in human scores")

// HumanScore is one rater judgment. Rows with an empty score are skipped
// when the file is read.
type HumanScore struct {
	Model         string
	RequirementID string
	Score         int
	Justification string
	EvidenceQuote string
}

// Comparison pairs a human score with the automated score for the same
// model and requirement
type Comparison struct {
	Model             string `json:"model"`
	RequirementID     string `json:"requirement_id"`
	HumanScore        int    `json:"score"`
	AutoScore         int    `json:"auto_score"`
	Justification     string `json:"justification"`
	AutoJustification string `json:"auto_justification"`
	EvidenceQuote     string `json:"evidence_quote"`
}

// Metrics summarizes agreement over every comparison
type Metrics struct {
	Comparisons       int      `json:"n_comparisons"`
	ExactAgreementPct float64  `json:"exact_agreement_pct"`
	WithinOnePct      float64  `json:"within_one_agreement_pct"`
	CohensKappa       *float64 `json:"cohens_kappa"` // nil when undefined
	MeanHuman         float64  `json:"mean_human"`
	MeanAuto          float64  `json:"mean_auto"`
	AutoOverscores    int      `json:"auto_overscores_n"`
	AutoUnderscores   int      `json:"auto_underscores_n"`
}

// LoadHumanCSV reads rater scores from path
func LoadHumanCSV(path string) ([]HumanScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open human scores: %w", err)
	}
	defer func() { _ = f.Close() }()

	scores, err := ReadHumanCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scores, nil
}

// ReadHumanCSV parses a rater CSV with a header row. The model,
// requirement_id and score columns are required; justification and
// evidence_quote are optional. Column order does not matter.
func ReadHumanCSV(r io.Reader) ([]HumanScore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"model", "requirement_id", "score"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var scores []HumanScore
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		raw := field(record, "score")
		if raw == "" {
			continue
		}
		level, err := parseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		scores = append(scores, HumanScore{
			Model:         field(record, "model"),
			RequirementID: field(record, "requirement_id"),
			Score:         level,
			Justification: field(record, "justification"),
			EvidenceQuote: field(record, "evidence_quote"),
		})
	}
	return scores, nil
}

// parseLevel accepts "2" and "2.0"
func parseLevel(raw string) (int, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("score %q is not an integer", raw)
	}
	if f < float64(model.ScoreAbsent) || f > float64(model.MaxScore) {
		return 0, fmt.Errorf("score %q outside 0..%d", raw, model.MaxScore)
	}
	return int(f), nil
}

// Match joins human scores with the reports on model name and requirement
// id. Human rows without an automated counterpart are dropped; the result
// keeps the human order.
func Match(human []HumanScore, reports []*model.ModelReport) []Comparison {
	type key struct{ model, requirement string }
	auto := make(map[key]model.RequirementScore)
	for _, report := range reports {
		for _, rs := range report.Scores {
			auto[key{report.ModelName, rs.RequirementID}] = rs
		}
	}

	var out []Comparison
	for _, h := range human {
		rs, ok := auto[key{h.Model, h.RequirementID}]
		if !ok {
			continue
		}
		out = append(out, Comparison{
			Model:             h.Model,
			RequirementID:     h.RequirementID,
			HumanScore:        h.Score,
			AutoScore:         int(rs.Score),
			Justification:     h.Justification,
			AutoJustification: rs.Justification,
			EvidenceQuote:     h.EvidenceQuote,
		})
	}
	return out
}

// Compute returns agreement metrics. An empty input yields zero metrics.
func Compute(comparisons []Comparison) Metrics {
	n := len(comparisons)
	if n == 0 {
		return Metrics{}
	}

	m := Metrics{Comparisons: n}
	human := make([]int, n)
	auto := make([]int, n)
	humanF := make(stats.Float64Data, n)
	autoF := make(stats.Float64Data, n)
	var exact, withinOne int

	for i, c := range comparisons {
		human[i], auto[i] = c.HumanScore, c.AutoScore
		humanF[i], autoF[i] = float64(c.HumanScore), float64(c.AutoScore)

		diff := c.AutoScore - c.HumanScore
		switch {
		case diff == 0:
			exact++
		case diff > 0:
			m.AutoOverscores++
		default:
			m.AutoUnderscores++
		}
		if diff >= -1 && diff <= 1 {
			withinOne++
		}
	}

	m.ExactAgreementPct = round(100*float64(exact)/float64(n), 2)
	m.WithinOnePct = round(100*float64(withinOne)/float64(n), 2)
	m.MeanHuman = round(mean(humanF), 2)
	m.MeanAuto = round(mean(autoF), 2)
	if kappa, ok := LinearKappa(human, auto); ok {
		k := round(kappa, 3)
		m.CohensKappa = &k
	}
	return m
}

// LinearKappa returns Cohen's kappa with linear weights. Weights are the
// distance between label positions among the labels either rater used.
// ok is false when kappa is undefined, which happens when both raters only
// ever used one label.
func LinearKappa(a, b []int) (kappa float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	seen := make(map[int]bool)
	for i := range a {
		seen[a[i]] = true
		seen[b[i]] = true
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	k := len(labels)
	confusion := make([][]float64, k)
	for i := range confusion {
		confusion[i] = make([]float64, k)
	}
	rows := make([]float64, k)
	cols := make([]float64, k)
	for i := range a {
		r, c := index[a[i]], index[b[i]]
		confusion[r][c]++
		rows[r]++
		cols[c]++
	}

	total := float64(len(a))
	var observed, expected float64
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			w := math.Abs(float64(i - j))
			observed += w * confusion[i][j]
			expected += w * rows[i] * cols[j] / total
		}
	}
	if expected == 0 {
		return 0, false
	}
	return 1 - observed/expected, true
}

// Disagreements returns the comparisons whose scores differ
func Disagreements(comparisons []Comparison) []Comparison {
	out := []Comparison{}
	for _, c := range comparisons {
		if c.HumanScore != c.AutoScore {
			out = append(out, c)
		}
	}
	return out
}

// WriteReport renders metrics as a markdown summary
func WriteReport(w io.Writer, m Metrics) error {
	kappa := "n/a"
	if m.CohensKappa != nil {
		kappa = strconv.FormatFloat(*m.CohensKappa, 'f', -1, 64)
	}

	_, err := fmt.Fprintf(w, `# Agreement Report

- Comparisons: %d
- Exact agreement: %s%%
- Within-one agreement: %s%%
- Cohen's kappa (linear): %s
- Mean human score: %s
- Mean auto score: %s
- Auto overscores: %d
- Auto underscores: %d
`,
		m.Comparisons,
		formatFloat(m.ExactAgreementPct),
		formatFloat(m.WithinOnePct),
		kappa,
		formatFloat(m.MeanHuman),
		formatFloat(m.MeanAuto),
		m.AutoOverscores,
		m.AutoUnderscores)
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func mean(data stats.Float64Data) float64 {
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}

func round(f float64, places int) float64 {
	r, err := stats.Round(f, places)
	if err != nil {
		return f
	}
	return r
}
