// Package ingest walks a filesystem tree and renders it into a text digest:
// a summary, an ASCII tree and the concatenated file contents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/digest/internal/matcher"
	"github.com/temirov/digest/internal/output"
	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/tokenizer"
	"github.com/temirov/digest/internal/types"
	"github.com/temirov/digest/internal/utils"
)

// Options carries collaborators and switches that are not part of the traversal filters.
type Options struct {
	// Logger receives warnings about unreadable entries. Defaults to a no-op logger.
	Logger *zap.Logger
	// Workers above one scans top-level subdirectories concurrently.
	Workers int
	// RespectGitignore adds the root .gitignore rules to the exclude patterns.
	RespectGitignore bool
	// Summary labels the summary header. An empty name falls back to the root's base name.
	Summary output.SummaryOptions
	// TokenCounter, when set, estimates the tokens of the tree and content sections.
	TokenCounter tokenizer.Counter
}

func (options Options) logger() *zap.Logger {
	if options.Logger == nil {
		return zap.NewNop()
	}
	return options.Logger
}

// ValidateConfig rejects non-positive size and depth limits and a negative file cap.
func ValidateConfig(config types.TraversalConfig) error {
	if config.MaxFileSize <= 0 {
		return fmt.Errorf(errorNonPositiveLimitFormat, ErrConfigInvalid, maxFileSizeLimitName, config.MaxFileSize)
	}
	if config.MaxTotalSize <= 0 {
		return fmt.Errorf(errorNonPositiveLimitFormat, ErrConfigInvalid, maxTotalSizeLimitName, config.MaxTotalSize)
	}
	if config.MaxDepth <= 0 {
		return fmt.Errorf(errorNonPositiveLimitFormat, ErrConfigInvalid, maxDepthLimitName, config.MaxDepth)
	}
	if config.MaxFiles < 0 {
		return fmt.Errorf(errorNegativeLimitFormat, ErrConfigInvalid, maxFilesLimitName, config.MaxFiles)
	}
	return nil
}

// Ingest builds the tree rooted at rootPath and renders it. Configuration and
// missing-root errors are returned before any entry is read; everything that
// goes wrong afterwards is recorded in the tree and the statistics. A
// cancelled context yields a partial digest with Stats.Cancelled set.
func Ingest(ctx context.Context, rootPath string, config types.TraversalConfig, options Options) (types.Digest, error) {
	root, totals, buildError := Build(ctx, rootPath, config, options)
	if buildError != nil {
		return types.Digest{}, buildError
	}

	tree := output.FormatTree(root)
	content := output.FormatContent(root)

	summaryOptions := options.Summary
	if summaryOptions.Name == "" {
		summaryOptions.Name = root.Name
	}
	tokenCount := -1
	if options.TokenCounter != nil {
		counted, countError := options.TokenCounter.CountString(tree + content)
		if countError != nil {
			return types.Digest{}, fmt.Errorf(errorTokenCountFormat, countError)
		}
		tokenCount = counted
		summaryOptions.TokenEstimate = utils.FormatTokenCount(counted)
	}

	return types.Digest{
		Summary:    output.FormatSummary(totals, summaryOptions),
		Tree:       tree,
		Content:    content,
		Stats:      totals,
		Root:       root,
		TokenCount: tokenCount,
	}, nil
}

// Build walks rootPath and returns the root node with the traversal totals.
func Build(ctx context.Context, rootPath string, config types.TraversalConfig, options Options) (*types.Node, stats.Totals, error) {
	if validationError := ValidateConfig(config); validationError != nil {
		return nil, stats.Totals{}, validationError
	}
	rules, compileError := matcher.Compile(config.IncludePatterns, config.ExcludePatterns)
	if compileError != nil {
		return nil, stats.Totals{}, fmt.Errorf(errorPatternFormat, ErrConfigInvalid, compileError)
	}

	absoluteRoot, absoluteError := filepath.Abs(rootPath)
	if absoluteError != nil {
		return nil, stats.Totals{}, fmt.Errorf(errorAbsolutePathFormat, rootPath, absoluteError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, stats.Totals{}, fmt.Errorf(errorPathMissingFormat, ErrPathNotFound, rootPath)
		}
		return nil, stats.Totals{}, fmt.Errorf(errorStatRootFormat, rootPath, statError)
	}
	if options.RespectGitignore && rootInfo.IsDir() {
		extendedRules, ignoreError := rules.WithGitignore(absoluteRoot)
		if ignoreError != nil {
			return nil, stats.Totals{}, fmt.Errorf(errorIgnoreRulesFormat, ignoreError)
		}
		rules = extendedRules
	}

	logger := options.logger()
	parallel := options.Workers > 1 && rootInfo.IsDir()
	walker := newBuilder(ctx, config, rules, logger)
	root := &types.Node{
		Path: types.RootNodePath,
		Name: filepath.Base(absoluteRoot),
		Kind: types.NodeKindDirectory,
	}

	switch {
	case ctx.Err() != nil:
		walker.totals.MarkCancelled()
		if !rootInfo.IsDir() {
			root.Kind = types.NodeKindFile
		}
	case !rootInfo.IsDir():
		root.Kind = types.NodeKindFile
		if rootInfo.Mode().IsRegular() {
			walker.visitFile(root, absoluteRoot, rootInfo.Size())
		} else {
			walker.totals.RecordFile()
			walker.markIrregular(root)
		}
	case parallel:
		walker.walkParallel(root, absoluteRoot, options.Workers)
		walker.loadDeferred(root, absoluteRoot)
	default:
		walker.walk(root, absoluteRoot)
	}

	if walker.totals.Cancelled {
		logger.Debug(debugTraversalCancelled, zap.String("root", root.Name), zap.Int("files", walker.totals.FilesVisited))
	} else {
		logger.Debug(debugTraversalFinished,
			zap.String("root", root.Name),
			zap.Int("files", walker.totals.FilesVisited),
			zap.Int("included", walker.totals.FilesIncluded),
			zap.Int64("bytes", walker.totals.BytesIncluded),
		)
	}
	return root, walker.totals, nil
}
