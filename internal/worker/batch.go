package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/ingest"
	"github.com/ppiankov/cardaudit/internal/model"
)

// Scorer produces the report for one model card
type Scorer interface {
	ScoreDocument(ctx context.Context, path string) (*model.ModelReport, error)
}

// DocumentJob scores one model card
type DocumentJob struct {
	Index   int
	Path    string
	Scorer  Scorer
	Timeout time.Duration // 0 means no per-document timeout
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	started := time.Now()
	report, err := j.Scorer.ScoreDocument(ctx, j.Path)
	return &DocumentResult{
		Index:   j.Index,
		Path:    j.Path,
		Name:    ingest.DocumentName(j.Path),
		Report:  report,
		Error:   err,
		Elapsed: time.Since(started),
	}
}

// DocumentResult represents the outcome of one document
type DocumentResult struct {
	Index   int
	Path    string
	Name    string
	Report  *model.ModelReport
	Error   error
	Elapsed time.Duration
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor scores many model cards concurrently. One document's
// failure is recorded in its result and never stops the others.
type BatchProcessor struct {
	scorer      Scorer
	concurrency int
	docTimeout  time.Duration
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scorer Scorer, concurrency int, docTimeout time.Duration, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		scorer:      scorer,
		concurrency: concurrency,
		docTimeout:  docTimeout,
		logger:      logger,
	}
}

// ProcessPaths scores every path and returns results in input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DocumentResult {
	if len(paths) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, path := range paths {
			job := &DocumentJob{
				Index:   i,
				Path:    path,
				Scorer:  b.scorer,
				Timeout: b.docTimeout,
			}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	results := make([]*DocumentResult, 0, len(paths))
	done := make(map[int]bool, len(paths))
	for r := range pool.Results() {
		res := r.(*DocumentResult)
		done[res.Index] = true
		results = append(results, res)

		if res.Error != nil {
			b.logger.Error("document failed",
				zap.String("document", res.Name),
				zap.Duration("elapsed", res.Elapsed),
				zap.Error(res.Error))
			continue
		}
		b.logger.Info("document scored",
			zap.String("document", res.Name),
			zap.Float64("overall_percentage", res.Report.OverallPercentage),
			zap.Duration("elapsed", res.Elapsed))
	}

	// Documents never started because the batch was cancelled
	for i, path := range paths {
		if done[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		results = append(results, &DocumentResult{
			Index: i,
			Path:  path,
			Name:  ingest.DocumentName(path),
			Error: fmt.Errorf("not processed: %w", err),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessDir scores every supported document in dir
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*DocumentResult, error) {
	paths, err := ingest.ListDocuments(dir)
	if err != nil {
		return nil, err
	}
	return b.ProcessPaths(ctx, paths), nil
}

// ProcessFile reads document paths from a list file and scores them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	paths, err := ReadListFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}
	return b.ProcessPaths(ctx, paths), nil
}

// Succeeded returns the reports of successful results, in order
func Succeeded(results []*DocumentResult) []*model.ModelReport {
	var reports []*model.ModelReport
	for _, r := range results {
		if r.Error == nil && r.Report != nil {
			reports = append(reports, r.Report)
		}
	}
	return reports
}

// Failed returns the results that carry an error
func Failed(results []*DocumentResult) []*DocumentResult {
	var failed []*DocumentResult
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// ReadListFile reads entries from a file (one per line)
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return entries, nil
}
