package ingest

import (
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/types"
)

// walkParallel lists the root itself and hands each top-level subdirectory to
// a forked builder. Child order is fixed before any worker starts, and worker
// totals are merged through a single aggregator. No file content is read
// here; loadDeferred does that afterwards under the content budget.
func (walker *builder) walkParallel(root *types.Node, absoluteRoot string, workers int) {
	walker.deferContent = true
	defer func() { walker.deferContent = false }()

	frame := walker.openDirectory(root, absoluteRoot)

	var aggregator stats.Aggregator
	var group errgroup.Group
	group.SetLimit(workers)

	for _, entry := range frame.entries {
		if walker.ctx.Err() != nil {
			walker.totals.MarkCancelled()
			break
		}
		child, descend := walker.visitEntry(root, absoluteRoot, entry)
		if child == nil {
			continue
		}
		root.Children = append(root.Children, child)
		if !descend {
			continue
		}
		subtreeWalker := walker.fork()
		subtreeNode := child
		subtreePath := filepath.Join(absoluteRoot, entry.Name())
		group.Go(func() error {
			subtreeWalker.walk(subtreeNode, subtreePath)
			aggregator.Merge(subtreeWalker.totals)
			return subtreeWalker.ctx.Err()
		})
	}
	if waitError := group.Wait(); waitError != nil {
		walker.totals.MarkCancelled()
	}
	walker.totals.Merge(aggregator.Snapshot())

	keptChildren := root.Children[:0]
	for _, child := range root.Children {
		if walker.prunable(child) {
			continue
		}
		root.Size += child.Size
		keptChildren = append(keptChildren, child)
	}
	root.Children = keptChildren
}
