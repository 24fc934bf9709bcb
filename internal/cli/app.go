package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/cache"
	"github.com/ppiankov/cardaudit/internal/ingest"
	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/pipeline"
	"github.com/ppiankov/cardaudit/internal/rubric"
	"github.com/ppiankov/cardaudit/internal/worker"
)

const rule = "═══════════════════════════════════════════════════════════"

// app holds the collaborators shared by the scoring commands
type app struct {
	cfg      *model.Config
	rubric   *rubric.Rubric
	cache    cache.Cache
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

// loadRubric reads the rubric and keeps the configured frameworks.
// A missing or invalid rubric is fatal for every scoring command.
func loadRubric(cfg *model.Config) (*rubric.Rubric, error) {
	r, err := rubric.Load(cfg.Paths.Rubric)
	if err != nil {
		return nil, err
	}
	return r.Only(cfg.Frameworks)
}

// newApp wires the rubric, cache, LLM client and pipeline from cfg
func newApp(ctx context.Context, cfg *model.Config, log *zap.Logger) (*app, error) {
	rub, err := loadRubric(cfg)
	if err != nil {
		return nil, err
	}

	sources, err := ingest.LoadSourceMap(cfg.Paths.Sources)
	if err != nil {
		return nil, err
	}

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	client := llm.NewClient(llm.NewRouter(cfg.LLM), llm.ClientOptions{
		Limiter:   limiter,
		Policy:    llm.PolicyFromConfig(cfg.Retry),
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    log,
	})

	p, err := pipeline.New(cfg, pipeline.Deps{
		Rubric:  rub,
		Client:  client,
		Cache:   c,
		Sources: sources,
		Logger:  log,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		rubric:   rub,
		cache:    c,
		pipeline: p,
		logger:   log,
	}, nil
}

// Close releases the cache backend
func (a *app) Close() error {
	return a.cache.Close()
}
