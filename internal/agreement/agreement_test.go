package agreement

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cardaudit/internal/model"
)

const raterCSV = `timestamp,model,requirement_id,score,auto_score,justification,evidence_quote,auto_justification
2026-01-10T10:00:00,Alpha,CoP-1,0,0,Nothing found,,
2026-01-10T10:01:00,Alpha,STREAM-1,1,2,"Named only, no detail",We ran evals,Partial
2026-01-10T10:02:00,Alpha,STREAM-2,,2,skipped,,
2026-01-10T10:03:00,Beta,STREAM-1,2.0,2,Methodology given,Table 3,ok
2026-01-10T10:04:00,Beta,CoP-1,3,1,Full documentation,Section 2,vague
2026-01-10T10:05:00,Gamma,CoP-1,3,,not scored by the pipeline,,
`

func reports() []*model.ModelReport {
	return []*model.ModelReport{
		{
			ModelName: "Alpha",
			Scores: []model.RequirementScore{
				{RequirementID: "CoP-1", Score: model.ScoreAbsent, Justification: "No evidence."},
				{RequirementID: "STREAM-1", Score: model.ScorePartial, Justification: "Some methodology."},
				{RequirementID: "STREAM-2", Score: model.ScorePartial},
			},
		},
		{
			ModelName: "Beta",
			Scores: []model.RequirementScore{
				{RequirementID: "STREAM-1", Score: model.ScorePartial, Justification: "Benchmarks named."},
				{RequirementID: "CoP-1", Score: model.ScoreMentioned, Justification: "Brief mention."},
			},
		},
	}
}

func TestReadHumanCSV(t *testing.T) {
	scores, err := ReadHumanCSV(strings.NewReader(raterCSV))
	require.NoError(t, err)
	require.Len(t, scores, 5, "blank scores are skipped")

	assert.Equal(t, HumanScore{
		Model:         "Alpha",
		RequirementID: "STREAM-1",
		Score:         1,
		Justification: "Named only, no detail",
		EvidenceQuote: "We ran evals",
	}, scores[1])
	assert.Equal(t, 2, scores[2].Score, "2.0 is an integer score")
}

func TestReadHumanCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing score column", "model,requirement_id\nAlpha,CoP-1\n"},
		{"not a number", "model,requirement_id,score\nAlpha,CoP-1,high\n"},
		{"fractional", "model,requirement_id,score\nAlpha,CoP-1,1.5\n"},
		{"out of range", "model,requirement_id,score\nAlpha,CoP-1,4\n"},
		{"negative", "model,requirement_id,score\nAlpha,CoP-1,-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHumanCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadHumanCSV(strings.NewReader("model,score\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadHumanCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), HumanScoresFile)
	require.NoError(t, os.WriteFile(path, []byte(raterCSV), 0644))

	scores, err := LoadHumanCSV(path)
	require.NoError(t, err)
	assert.Len(t, scores, 5)

	_, err = LoadHumanCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	human, err := ReadHumanCSV(strings.NewReader(raterCSV))
	require.NoError(t, err)

	comparisons := Match(human, reports())
	require.Len(t, comparisons, 4, "Gamma has no automated report")

	keys := make([]string, len(comparisons))
	for i, c := range comparisons {
		keys[i] = c.Model + "/" + c.RequirementID
	}
	assert.Equal(t, []string{"Alpha/CoP-1", "Alpha/STREAM-1", "Beta/STREAM-1", "Beta/CoP-1"}, keys)

	assert.Equal(t, Comparison{
		Model:             "Beta",
		RequirementID:     "CoP-1",
		HumanScore:        3,
		AutoScore:         1,
		Justification:     "Full documentation",
		AutoJustification: "Brief mention.",
		EvidenceQuote:     "Section 2",
	}, comparisons[3])
}

func TestCompute(t *testing.T) {
	comparisons := []Comparison{
		{HumanScore: 0, AutoScore: 0},
		{HumanScore: 1, AutoScore: 2},
		{HumanScore: 2, AutoScore: 2},
		{HumanScore: 3, AutoScore: 1},
	}

	m := Compute(comparisons)

	assert.Equal(t, 4, m.Comparisons)
	assert.Equal(t, 50.0, m.ExactAgreementPct)
	assert.Equal(t, 75.0, m.WithinOnePct)
	assert.Equal(t, 1.5, m.MeanHuman)
	assert.Equal(t, 1.25, m.MeanAuto)
	assert.Equal(t, 1, m.AutoOverscores)
	assert.Equal(t, 1, m.AutoUnderscores)
	require.NotNil(t, m.CohensKappa)
	assert.InDelta(t, 0.333, *m.CohensKappa, 1e-9)
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, Metrics{}, Compute(nil))
}

func TestLinearKappa(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []int
		want   float64
		wantOK bool
	}{
		{"perfect agreement", []int{0, 3, 1, 2}, []int{0, 3, 1, 2}, 1, true},
		{"complete reversal", []int{0, 3}, []int{3, 0}, -1, true},
		{"single label", []int{2, 2, 2}, []int{2, 2, 2}, 0, false},
		{"empty", nil, nil, 0, false},
		{"length mismatch", []int{1}, []int{1, 2}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LinearKappa(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDisagreements(t *testing.T) {
	assert.Equal(t, []Comparison{}, Disagreements([]Comparison{{HumanScore: 1, AutoScore: 1}}))

	got := Disagreements([]Comparison{
		{Model: "A", HumanScore: 1, AutoScore: 1},
		{Model: "B", HumanScore: 3, AutoScore: 2},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Model)
}

func TestWriteReport(t *testing.T) {
	kappa := 0.333
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Metrics{
		Comparisons:       4,
		ExactAgreementPct: 50,
		WithinOnePct:      75,
		CohensKappa:       &kappa,
		MeanHuman:         1.5,
		MeanAuto:          1.25,
		AutoOverscores:    1,
		AutoUnderscores:   1,
	}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Agreement Report\n"))
	assert.Contains(t, out, "- Comparisons: 4\n")
	assert.Contains(t, out, "- Exact agreement: 50%\n")
	assert.Contains(t, out, "- Within-one agreement: 75%\n")
	assert.Contains(t, out, "- Cohen's kappa (linear): 0.333\n")
	assert.Contains(t, out, "- Mean auto score: 1.25\n")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, Metrics{}))
	assert.Contains(t, buf.String(), "- Cohen's kappa (linear): n/a\n")
}
