package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/digest/internal/matcher"
	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/types"
	"github.com/temirov/digest/internal/utils"
)

// builder owns the state of one walk. Parallel scans fork one builder per subtree.
type builder struct {
	ctx    context.Context
	config types.TraversalConfig
	rules  *matcher.Rules
	logger *zap.Logger
	totals stats.Totals
	// budget is nil on forked builders, which never read content.
	budget *contentBudget
	// deferContent leaves eligible files unread for loadDeferred.
	deferContent bool
}

func newBuilder(ctx context.Context, config types.TraversalConfig, rules *matcher.Rules, logger *zap.Logger) *builder {
	return &builder{
		ctx:    ctx,
		config: config,
		rules:  rules,
		logger: logger,
		budget: newContentBudget(config.MaxTotalSize, config.MaxFiles),
	}
}

func (walker *builder) fork() *builder {
	return &builder{
		ctx:          walker.ctx,
		config:       walker.config,
		rules:        walker.rules,
		logger:       walker.logger,
		deferContent: true,
	}
}

type directoryFrame struct {
	node         *types.Node
	absolutePath string
	entries      []fs.DirEntry
	nextIndex    int
}

// walk fills directory depth-first using an explicit stack of open directories.
func (walker *builder) walk(directory *types.Node, absolutePath string) {
	stack := []*directoryFrame{walker.openDirectory(directory, absolutePath)}
	for len(stack) > 0 {
		if walker.ctx.Err() != nil {
			walker.totals.MarkCancelled()
			walker.unwind(stack)
			return
		}
		frame := stack[len(stack)-1]
		if frame.nextIndex >= len(frame.entries) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				walker.closeDirectory(stack[len(stack)-1].node, frame.node)
			}
			continue
		}
		entry := frame.entries[frame.nextIndex]
		frame.nextIndex++

		child, descend := walker.visitEntry(frame.node, frame.absolutePath, entry)
		if child == nil {
			continue
		}
		frame.node.Children = append(frame.node.Children, child)
		if descend {
			stack = append(stack, walker.openDirectory(child, filepath.Join(frame.absolutePath, entry.Name())))
			continue
		}
		frame.node.Size += child.Size
	}
}

// unwind closes every open directory after an interrupted walk so sizes stay consistent.
func (walker *builder) unwind(stack []*directoryFrame) {
	for index := len(stack) - 1; index > 0; index-- {
		walker.closeDirectory(stack[index-1].node, stack[index].node)
	}
}

// openDirectory lists a directory. os.ReadDir returns entries sorted by name.
func (walker *builder) openDirectory(directory *types.Node, absolutePath string) *directoryFrame {
	frame := &directoryFrame{node: directory, absolutePath: absolutePath}
	entries, readError := os.ReadDir(absolutePath)
	if readError != nil {
		walker.markUnreadable(directory, readError)
		return frame
	}
	walker.totals.RecordDirectory()
	frame.entries = entries
	return frame
}

// closeDirectory folds a finished child directory into its parent, dropping
// it when include patterns left it empty.
func (walker *builder) closeDirectory(parent *types.Node, child *types.Node) {
	if walker.prunable(child) {
		parent.Children = parent.Children[:len(parent.Children)-1]
		return
	}
	parent.Size += child.Size
}

func (walker *builder) prunable(node *types.Node) bool {
	return walker.rules.HasIncludes() &&
		node.IsDirectory() &&
		len(node.Children) == 0 &&
		!node.IsTruncated &&
		node.Error == ""
}

// visitEntry classifies one directory entry. The boolean result is true when
// the returned directory node must be descended into.
func (walker *builder) visitEntry(parent *types.Node, parentPath string, entry fs.DirEntry) (*types.Node, bool) {
	name := entry.Name()
	relativePath := utils.JoinRelativePath(parent.Path, name)
	absolutePath := filepath.Join(parentPath, name)
	entryType := entry.Type()
	isDirectory := entryType.IsDir()

	if !walker.rules.Admits(relativePath, isDirectory) {
		walker.totals.RecordExcluded()
		return nil, false
	}

	node := &types.Node{
		Path:  relativePath,
		Name:  name,
		Depth: parent.Depth + 1,
	}
	switch {
	case entryType&fs.ModeSymlink != 0:
		node.Kind = types.NodeKindSymlink
		walker.totals.RecordSymlink()
		target, linkError := os.Readlink(absolutePath)
		if linkError != nil {
			walker.markUnreadable(node, linkError)
			return node, false
		}
		node.SymlinkTarget = filepath.ToSlash(target)
		return node, false
	case isDirectory:
		node.Kind = types.NodeKindDirectory
		if node.Depth > walker.config.MaxDepth {
			markTruncated(node, types.TruncationDepth)
			walker.totals.RecordDepthTruncation()
			return node, false
		}
		return node, true
	case entryType.IsRegular():
		node.Kind = types.NodeKindFile
		info, infoError := entry.Info()
		if infoError != nil {
			walker.totals.RecordFile()
			walker.markUnreadable(node, infoError)
			return node, false
		}
		walker.visitFile(node, absolutePath, info.Size())
		return node, false
	default:
		node.Kind = types.NodeKindFile
		walker.totals.RecordFile()
		walker.markIrregular(node)
		return node, false
	}
}

func (walker *builder) markUnreadable(node *types.Node, cause error) {
	node.Error = utils.DescribeFileError(cause)
	node.Size = 0
	walker.totals.RecordUnreadable()
	walker.logger.Warn(warningUnreadableEntry, zap.String("path", node.Path), zap.String("reason", node.Error))
}

// markIrregular records FIFOs, sockets and devices without opening them.
func (walker *builder) markIrregular(node *types.Node) {
	node.Error = errorIrregularFile
	node.Size = 0
	walker.totals.RecordUnreadable()
	walker.logger.Warn(warningUnreadableEntry, zap.String("path", node.Path), zap.String("reason", node.Error))
}

func markTruncated(node *types.Node, reason types.TruncationReason) {
	node.IsTruncated = true
	node.TruncationReason = reason
}
