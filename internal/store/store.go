package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/cardaudit/internal/model"
)

// ScoresFile is the results file name written into the results directory
const ScoresFile = "scores.json"

// Sink persists the reports of one run
type Sink interface {
	Save(ctx context.Context, runID string, reports []*model.ModelReport) error
	Close(ctx context.Context) error
}

// JSONFileSink writes all reports as one indented JSON array
type JSONFileSink struct {
	Path string
}

// NewJSONFileSink creates a sink writing to path
func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{Path: path}
}

// Save replaces the file with the reports. An empty run writes an empty
// array, never null.
func (s *JSONFileSink) Save(_ context.Context, _ string, reports []*model.ModelReport) error {
	if reports == nil {
		reports = []*model.ModelReport{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	// Write to temp file then rename so readers never see a partial array
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Close is a no-op
func (s *JSONFileSink) Close(context.Context) error {
	return nil
}

// LoadJSON reads a results file written by JSONFileSink
func LoadJSON(path string) ([]*model.ModelReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var reports []*model.ModelReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return reports, nil
}

// MultiSink fans a run out to several sinks. Every sink is attempted; the
// errors are joined.
type MultiSink []Sink

// Save saves to every sink
func (m MultiSink) Save(ctx context.Context, runID string, reports []*model.ModelReport) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, runID, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m MultiSink) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
