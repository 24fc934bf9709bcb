package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ppiankov/cardaudit/internal/cache"
	"github.com/ppiankov/cardaudit/internal/ingest"
	"github.com/ppiankov/cardaudit/internal/llm"
	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/validate"
)

// DefaultConcurrency bounds in-flight Stage A calls
const DefaultConcurrency = 50

// Options configures a ClaimExtractor
type Options struct {
	Model         string // provider/model identifier
	PromptVersion string
	Concurrency   int         // Stage A ceiling; <= 0 uses DefaultConcurrency
	Cache         cache.Cache // nil disables caching
	Logger        *zap.Logger
}

// ClaimExtractor runs Stage A: per (requirement, chunk) relevance judgment
// with verbatim quote extraction
type ClaimExtractor struct {
	client        llm.JSONCaller
	cache         cache.Cache
	gate          *semaphore.Weighted
	model         string
	promptVersion string
	logger        *zap.Logger
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(client llm.JSONCaller, opts Options) *ClaimExtractor {
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

	return &ClaimExtractor{
		client:        client,
		cache:         c,
		gate:          semaphore.NewWeighted(int64(concurrency)),
		model:         opts.Model,
		promptVersion: opts.PromptVersion,
		logger:        logger.Named("stage_a"),
	}
}

// CacheKey returns the cache key for a requirement and chunk text
func (e *ClaimExtractor) CacheKey(requirementID, chunkText string) string {
	return cache.Key(e.model, e.promptVersion, requirementID, cache.HashHex(chunkText))
}

// Extract judges one chunk against one requirement. Cached results are
// returned without touching the Stage A ceiling.
func (e *ClaimExtractor) Extract(ctx context.Context, req model.Requirement, chunk ingest.Chunk) (model.ClaimExtraction, error) {
	key := e.CacheKey(req.ID, chunk.Text)
	log := e.logger.With(zap.String("requirement", req.ID), zap.Int("chunk", chunk.Index))

	var ext model.ClaimExtraction
	if cache.GetJSON(ctx, e.cache, key, &ext) {
		log.Debug("cache hit")
		ext.ChunkIndex = chunk.Index
		return ext, nil
	}
	log.Debug("cache miss")

	if err := e.gate.Acquire(ctx, 1); err != nil {
		return ext, err
	}
	err := e.client.CallJSON(ctx, e.model, BuildPrompt(req, chunk.Text), func(obj map[string]any) error {
		var err error
		ext, err = validate.Extraction(obj)
		return err
	})
	e.gate.Release(1)
	if err != nil {
		return ext, fmt.Errorf("stage A %s chunk %d: %w", req.ID, chunk.Index, err)
	}

	ext.RequirementID = req.ID
	ext.ChunkIndex = chunk.Index

	var verified []model.QuoteSpan
	for _, span := range ext.QuoteSpans {
		v, ok := VerifySpan(span, chunk.Text)
		if !ok {
			log.Debug("quote span discarded", zap.String("quote", span.Quote))
			continue
		}
		verified = append(verified, v)
	}
	ext.QuoteSpans = verified
	ext.Quotes = ExpandQuotes(chunk.Text, verified)

	if err := cache.SetJSON(ctx, e.cache, key, ext); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return ext, nil
}

// ExtractAll fans out over every chunk for one requirement and returns the
// extractions in chunk order once all have completed. The first failure
// cancels the remaining calls.
func (e *ClaimExtractor) ExtractAll(ctx context.Context, req model.Requirement, chunks []ingest.Chunk) ([]model.ClaimExtraction, error) {
	results := make([]model.ClaimExtraction, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			ext, err := e.Extract(gctx, req, chunk)
			if err != nil {
				return err
			}
			results[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Evidence runs Stage A over chunks and aggregates the result
func (e *ClaimExtractor) Evidence(ctx context.Context, req model.Requirement, chunks []ingest.Chunk) (model.Evidence, error) {
	extractions, err := e.ExtractAll(ctx, req, chunks)
	if err != nil {
		return model.Evidence{}, err
	}
	return Aggregate(extractions), nil
}
