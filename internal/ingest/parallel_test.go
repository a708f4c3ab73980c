package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/temirov/digest/internal/matcher"
	"github.com/temirov/digest/internal/types"
)

func collectFiles(node *types.Node, files []*types.Node) []*types.Node {
	if node.Kind == types.NodeKindFile {
		return append(files, node)
	}
	for _, child := range node.Children {
		files = collectFiles(child, files)
	}
	return files
}

func TestParallelWalkReadsNothingPastTheBudget(t *testing.T) {
	rootDirectory := t.TempDir()
	for _, subtree := range []string{"first", "second", "third"} {
		directory := filepath.Join(rootDirectory, subtree)
		if err := os.MkdirAll(directory, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", subtree, err)
		}
		if err := os.WriteFile(filepath.Join(directory, "data.txt"), []byte("0123456789"), 0o600); err != nil {
			t.Fatalf("write %s: %v", subtree, err)
		}
	}

	config := types.TraversalConfig{MaxFileSize: 100, MaxTotalSize: 10, MaxDepth: 5}
	rules, compileError := matcher.Compile(nil, nil)
	if compileError != nil {
		t.Fatalf("compile rules: %v", compileError)
	}
	walker := newBuilder(context.Background(), config, rules, zap.NewNop())
	root := &types.Node{Path: types.RootNodePath, Name: filepath.Base(rootDirectory), Kind: types.NodeKindDirectory}

	walker.walkParallel(root, rootDirectory, 3)
	files := collectFiles(root, nil)
	if len(files) != 3 {
		t.Fatalf("expected 3 files after the walk, got %d", len(files))
	}
	for _, file := range files {
		if file.ContentLoaded || file.Content != "" {
			t.Fatalf("walk workers must not read content, %s was loaded", file.Path)
		}
	}

	walker.loadDeferred(root, rootDirectory)
	if walker.budget.used != 10 {
		t.Fatalf("expected 10 bytes admitted, got %d", walker.budget.used)
	}
	for index, file := range files {
		if index == 0 {
			if !file.ContentLoaded || file.Content != "0123456789" {
				t.Fatalf("expected %s to be loaded", file.Path)
			}
			continue
		}
		if file.ContentLoaded || file.Content != "" {
			t.Fatalf("%s lies past the budget cutoff but was loaded", file.Path)
		}
		if file.TruncationReason != types.TruncationTotalSize {
			t.Fatalf("expected %s to carry the total size reason, got %q", file.Path, file.TruncationReason)
		}
	}
	if walker.totals.FilesIncluded != 1 || !walker.totals.TotalSizeTruncated {
		t.Fatalf("unexpected totals: %+v", walker.totals)
	}
	if root.Size != 30 {
		t.Fatalf("expected metadata sizes to be kept, root size %d", root.Size)
	}
}

// expiringContext allows a fixed number of Err checks before reporting cancellation.
type expiringContext struct {
	context.Context
	remaining atomic.Int64
}

func (expiring *expiringContext) Err() error {
	if expiring.remaining.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

func TestParallelWalkReportsCancellationSeenByWorkers(t *testing.T) {
	rootDirectory := t.TempDir()
	if err := os.MkdirAll(filepath.Join(rootDirectory, "nested", "deeper"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rootDirectory, "nested", "deeper", "note.txt"), []byte("note"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	rules, compileError := matcher.Compile(nil, nil)
	if compileError != nil {
		t.Fatalf("compile rules: %v", compileError)
	}
	// The dispatcher consumes the only allowed check, so the worker sees the cancellation.
	expiring := &expiringContext{Context: context.Background()}
	expiring.remaining.Store(1)
	walker := newBuilder(expiring, types.TraversalConfig{MaxFileSize: 100, MaxTotalSize: 100, MaxDepth: 5}, rules, zap.NewNop())
	root := &types.Node{Path: types.RootNodePath, Name: filepath.Base(rootDirectory), Kind: types.NodeKindDirectory}

	walker.walkParallel(root, rootDirectory, 2)
	if !walker.totals.Cancelled {
		t.Fatalf("expected the walk to be marked cancelled")
	}
	if len(root.Children) != 1 || root.Children[0].Name != "nested" {
		t.Fatalf("expected the dispatched subtree to be kept, got %+v", root.Children)
	}
	if len(root.Children[0].Children) != 0 {
		t.Fatalf("expected the worker to stop before listing entries")
	}
}
