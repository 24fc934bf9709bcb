package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/cardaudit/internal/cache"
	"github.com/ppiankov/cardaudit/internal/extract"
	"github.com/ppiankov/cardaudit/internal/ingest"
	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/rubric"
	"github.com/ppiankov/cardaudit/internal/score"
)

// ErrEmptyDocument is returned for a model card with no text
var ErrEmptyDocument = errors.New("empty document")

// Deps are the collaborators a pipeline is built from
type Deps struct {
	Rubric  *rubric.Rubric
	Client  llm.JSONCaller   // Serves both stages; routed by model identifier
	Cache   cache.Cache      // nil disables caching
	Sources ingest.SourceMap // nil means no origin URLs
	Logger  *zap.Logger
}

// Pipeline orchestrates the two-stage scoring of one model card.
// A Pipeline is safe for concurrent use; the Stage A and Stage B ceilings
// are shared by every document it scores.
type Pipeline struct {
	rubric    *rubric.Rubric
	extractor *extract.ClaimExtractor
	scorer    *score.RubricScorer
	sources   ingest.SourceMap
	chunking  model.ChunkConfig
	logger    *zap.Logger
}

// New creates a pipeline from an explicit configuration
func New(cfg *model.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if deps.Rubric == nil {
		return nil, fmt.Errorf("%w: nil rubric", rubric.ErrInvalidRubric)
	}
	if deps.Client == nil {
		return nil, errors.New("pipeline: nil LLM client")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := deps.Sources
	if sources == nil {
		sources = ingest.SourceMap{}
	}

	extractor := extract.NewClaimExtractor(deps.Client, extract.Options{
		Model:         cfg.StageA.Model,
		PromptVersion: cfg.StageA.PromptVersion,
		Concurrency:   cfg.StageA.Concurrency,
		Cache:         deps.Cache,
		Logger:        logger,
	})
	scorer := score.NewRubricScorer(deps.Client, score.Options{
		Model:         cfg.StageB.Model,
		PromptVersion: cfg.StageB.PromptVersion,
		Concurrency:   cfg.StageB.Concurrency,
		Cache:         deps.Cache,
		Logger:        logger,
	})

	return &Pipeline{
		rubric:    deps.Rubric,
		extractor: extractor,
		scorer:    scorer,
		sources:   sources,
		chunking:  cfg.Chunking,
		logger:    logger,
	}, nil
}

// Rubric returns the requirements this pipeline scores
func (p *Pipeline) Rubric() *rubric.Rubric {
	return p.rubric
}

// ScoreDocument loads a model card from path and scores it
func (p *Pipeline) ScoreDocument(ctx context.Context, path string) (*model.ModelReport, error) {
	doc, err := ingest.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return p.Score(ctx, doc)
}

// Score runs both stages for every requirement and builds the report.
// Requirements run concurrently; within one requirement every chunk is
// extracted before scoring starts. Any requirement failure fails the
// document, since a missing score would skew the percentages.
func (p *Pipeline) Score(ctx context.Context, doc *ingest.Document) (*model.ModelReport, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Path)
	}

	started := time.Now()
	log := p.logger.With(zap.String("document", doc.Name))

	chunks := ingest.ChunkText(doc.Text, p.chunking.MaxTokens, p.chunking.OverlapTokens)
	reqs := p.rubric.Requirements()
	log.Info("scoring document",
		zap.Int("chunks", len(chunks)),
		zap.Int("requirements", len(reqs)))

	scores := make([]model.RequirementScore, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			ev, err := p.extractor.Evidence(gctx, req, chunks)
			if err != nil {
				return err
			}
			rs, err := p.scorer.Score(gctx, req, ev)
			if err != nil {
				return err
			}
			scores[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score %s: %w", doc.Name, err)
	}

	report := score.BuildReport(doc.Name, doc.Path, p.sources.URL(doc.Name), p.rubric, scores)
	log.Info("document scored",
		zap.Float64("overall_percentage", report.OverallPercentage),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}
