package score

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ppiankov/cardaudit/internal/cache"
	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/validate"
)

// DefaultConcurrency bounds in-flight Stage B calls
const DefaultConcurrency = 10

// Fixed result for a requirement with no extracted evidence
const (
	AbsentJustification = "No supporting evidence found in model card."
	AbsentReasoning     = "Absence of evidence."
)

// Options configures a RubricScorer
type Options struct {
	Model         string // provider/model identifier
	PromptVersion string
	Concurrency   int         // Stage B ceiling; <= 0 uses DefaultConcurrency
	Cache         cache.Cache // nil disables caching
	Logger        *zap.Logger
}

// RubricScorer runs Stage B: one rubric judgment per requirement
type RubricScorer struct {
	client        llm.JSONCaller
	cache         cache.Cache
	gate          *semaphore.Weighted
	model         string
	promptVersion string
	logger        *zap.Logger
}

// NewRubricScorer creates a new rubric scorer
func NewRubricScorer(client llm.JSONCaller, opts Options) *RubricScorer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	c := opts.Cache
	if c == nil {
		c = cache.NopCache{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RubricScorer{
		client:        client,
		cache:         c,
		gate:          semaphore.NewWeighted(int64(concurrency)),
		model:         opts.Model,
		promptVersion: opts.PromptVersion,
		logger:        logger.Named("stage_b"),
	}
}

// AbsentScore is the deterministic result for a requirement without evidence
func AbsentScore(requirementID string) model.RequirementScore {
	substantive := false
	return model.RequirementScore{
		RequirementID:        requirementID,
		Score:                model.ScoreAbsent,
		Justification:        AbsentJustification,
		Evidence:             []string{},
		Confidence:           1.0,
		Substantive:          &substantive,
		SubstantiveReasoning: AbsentReasoning,
	}
}

// CacheKey returns the cache key for a requirement and its aggregated evidence
func (s *RubricScorer) CacheKey(requirementID string, ev model.Evidence) string {
	payload, _ := json.Marshal(struct {
		Claims []string `json:"claims"`
		Quotes []string `json:"quotes"`
	}{ev.Claims, ev.Quotes})
	return cache.Key(s.model, s.promptVersion, requirementID, cache.HashHex(string(payload)))
}

// Score judges a requirement against its evidence. Empty evidence
// short-circuits to ABSENT without an LLM call.
func (s *RubricScorer) Score(ctx context.Context, req model.Requirement, ev model.Evidence) (model.RequirementScore, error) {
	log := s.logger.With(zap.String("requirement", req.ID))

	if ev.Empty() {
		log.Debug("no evidence, scoring absent")
		return AbsentScore(req.ID), nil
	}

	key := s.CacheKey(req.ID, ev)
	var rs model.RequirementScore
	if cache.GetJSON(ctx, s.cache, key, &rs) && rs.Score.Valid() {
		log.Debug("cache hit")
		return rs, nil
	}
	log.Debug("cache miss")

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return rs, err
	}
	err := s.client.CallJSON(ctx, s.model, BuildPrompt(req, ev), func(obj map[string]any) error {
		var err error
		rs, err = validate.Score(obj, req.ID)
		return err
	})
	s.gate.Release(1)
	if err != nil {
		return rs, fmt.Errorf("stage B %s: %w", req.ID, err)
	}

	evidence, fellBack := FilterEvidence(rs.Evidence, ev.Quotes)
	if fellBack {
		log.Warn("model evidence not found in extracted quotes, using extracted quotes",
			zap.Int("returned", len(rs.Evidence)))
	}
	rs.Evidence = evidence

	if err := cache.SetJSON(ctx, s.cache, key, rs); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return rs, nil
}

// FilterEvidence keeps the returned evidence strings that equal or are
// contained in one of the extracted quotes. When none survive the extracted
// quotes are returned instead and fellBack is true.
func FilterEvidence(returned, quotes []string) (kept []string, fellBack bool) {
	seen := make(map[string]bool)
	kept = []string{}
	for _, e := range returned {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		for _, q := range quotes {
			if strings.Contains(q, e) {
				seen[e] = true
				kept = append(kept, e)
				break
			}
		}
	}

	if len(kept) == 0 {
		return append([]string{}, quotes...), true
	}
	return kept, false
}
