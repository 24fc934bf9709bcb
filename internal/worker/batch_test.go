package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/cardaudit/internal/model"
)

// mockScorer implements Scorer
type mockScorer struct {
	failFor string
	delay   time.Duration
	calls   int32
}

func (m *mockScorer) ScoreDocument(ctx context.Context, path string) (*model.ModelReport, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failFor != "" && strings.Contains(path, m.failFor) {
		return nil, errors.New("unreadable model card")
	}
	return &model.ModelReport{
		ModelName:         filepath.Base(path),
		ModelCardPath:     path,
		OverallPercentage: 50,
	}, nil
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	scorer := &mockScorer{}
	processor := NewBatchProcessor(scorer, 2, 0, nil)

	paths := []string{"cards/a.md", "cards/b.md", "cards/c.md", "cards/d.md"}
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Index != i || res.Path != paths[i] {
			t.Errorf("result %d out of order: %+v", i, res)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
		}
		if res.Report == nil {
			t.Errorf("expected report for %s", res.Path)
		}
	}

	if results[0].Name != "a" {
		t.Errorf("expected document name 'a', got %q", results[0].Name)
	}
}

func TestBatchProcessor_FailureDoesNotStopBatch(t *testing.T) {
	scorer := &mockScorer{failFor: "broken"}
	processor := NewBatchProcessor(scorer, 2, 0, nil)

	results := processor.ProcessPaths(context.Background(), []string{"ok1.md", "broken.md", "ok2.md"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "broken" {
		t.Errorf("expected only 'broken' to fail, got %+v", failed)
	}
	if got := len(Succeeded(results)); got != 2 {
		t.Errorf("expected 2 successful reports, got %d", got)
	}
}

func TestBatchProcessor_DocTimeout(t *testing.T) {
	scorer := &mockScorer{delay: time.Second}
	processor := NewBatchProcessor(scorer, 1, 20*time.Millisecond, nil)

	results := processor.ProcessPaths(context.Background(), []string{"slow.md"})
	if !errors.Is(results[0].Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", results[0].Error)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	scorer := &mockScorer{delay: time.Second}
	processor := NewBatchProcessor(scorer, 1, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	paths := []string{"a.md", "b.md", "c.md", "d.md", "e.md"}
	results := processor.ProcessPaths(ctx, paths)

	// Every document is accounted for, processed or not
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for _, r := range results {
		if r.Error == nil {
			t.Errorf("expected %s to fail after cancellation", r.Path)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockScorer{}, 2, 0, nil)
	results := processor.ProcessPaths(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.txt", "sources.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	scorer := &mockScorer{}
	results, err := NewBatchProcessor(scorer, 2, 0, nil).ProcessDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(results))
	}
	if results[0].Name != "a" || results[1].Name != "b" {
		t.Errorf("unexpected order: %s, %s", results[0].Name, results[1].Name)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	content := "cards/a.md\n# comment\n\ncards/b.md\ncards/a.md\n"
	tmpFile := filepath.Join(t.TempDir(), "docs.txt")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	scorer := &mockScorer{}
	results, err := NewBatchProcessor(scorer, 2, 0, nil).ProcessFile(context.Background(), tmpFile)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results after dedupe, got %d", len(results))
	}
	if atomic.LoadInt32(&scorer.calls) != 2 {
		t.Errorf("expected 2 scorer calls, got %d", scorer.calls)
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockScorer{}, 1, 0, nil)
	if _, err := processor.ProcessFile(context.Background(), "/non/existent/file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestReadListFile(t *testing.T) {
	content := `# Model cards to score
gpt-5.md

claude-opus.md
# trailing comment
gpt-5.md
  gemini.pdf  
`
	tmpFile := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadListFile(tmpFile)
	if err != nil {
		t.Fatalf("ReadListFile failed: %v", err)
	}

	want := []string{"gpt-5.md", "claude-opus.md", "gemini.pdf"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], entries[i])
		}
	}
}

func TestDocumentResult_GetError(t *testing.T) {
	r := &DocumentResult{Error: errors.New("boom")}
	if r.GetError() == nil {
		t.Error("expected error")
	}
	if (&DocumentResult{}).GetError() != nil {
		t.Error("expected nil error")
	}
}
