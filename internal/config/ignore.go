// Package config loads layered YAML configuration and ignore files and
// resolves them into traversal settings.
package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/digest/internal/utils"
)

const (
	commentPrefix    = "#"
	anchorPrefix     = "/"
	directorySuffix  = "/"
	anyDepthSegment  = "**/"
	wildcardSymbols  = "*?[{"
	ignoreLoadFormat = "loading %s from %s: %w"
)

// LoadIgnoreFilePatterns reads one ignore file. Blank lines and lines starting
// with # are skipped. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadRecursiveIgnorePatterns walks rootDirectoryPath and collects the
// patterns of every ignore file it finds. Patterns from nested files are
// rewritten relative to the root: "*.tmp" in docs/ becomes "docs/**/*.tmp" and
// "/out" in docs/ becomes "docs/out". Directories named in skippedDirectories
// are not entered, and neither are directories deeper than maxDepth when it
// is positive, since the traversal never lists them. A cancelled context ends
// the walk early and returns the patterns collected so far.
func LoadRecursiveIgnorePatterns(ctx context.Context, rootDirectoryPath string, skippedDirectories map[string]struct{}, maxDepth int) ([]string, error) {
	var aggregatedPatterns []string

	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if walkError != nil {
			if currentDirectoryPath == rootDirectoryPath && !errors.Is(walkError, fs.ErrNotExist) {
				return walkError
			}
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if currentDirectoryPath != rootDirectoryPath {
			if _, skipped := skippedDirectories[directoryEntry.Name()]; skipped {
				return filepath.SkipDir
			}
		}
		relativeDirectory := utils.RelativePathOrSelf(currentDirectoryPath, rootDirectoryPath)
		if maxDepth > 0 && directoryDepth(relativeDirectory) > maxDepth {
			return filepath.SkipDir
		}

		ignoreFilePath := filepath.Join(currentDirectoryPath, utils.IgnoreFileName)
		ignorePatterns, loadError := LoadIgnoreFilePatterns(ignoreFilePath)
		if loadError != nil {
			return fmt.Errorf(ignoreLoadFormat, utils.IgnoreFileName, currentDirectoryPath, loadError)
		}
		for _, pattern := range ignorePatterns {
			aggregatedPatterns = append(aggregatedPatterns, rebasePattern(relativeDirectory, pattern))
		}
		return nil
	}

	if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
		return nil, walkError
	}
	return utils.DeduplicatePatterns(aggregatedPatterns), nil
}

func directoryDepth(relativeDirectory string) int {
	if relativeDirectory == "." {
		return 0
	}
	return strings.Count(relativeDirectory, "/") + 1
}

func rebasePattern(relativeDirectory string, pattern string) string {
	if relativeDirectory == "." {
		return pattern
	}
	prefix := relativeDirectory + directorySuffix
	if strings.HasPrefix(pattern, anchorPrefix) {
		return prefix + strings.TrimPrefix(pattern, anchorPrefix)
	}
	if !strings.Contains(strings.TrimSuffix(pattern, directorySuffix), "/") {
		return prefix + anyDepthSegment + pattern
	}
	return prefix + pattern
}

// ExcludePatterns combines the built-in excludes, the ignore files under
// rootDirectoryPath and the configured excludes. A built-in exclude that is
// also an include pattern is dropped so the include can take effect. Ignore
// files are looked up no deeper than settings.MaxDepth and the lookup stops
// when ctx is cancelled.
func ExcludePatterns(ctx context.Context, rootDirectoryPath string, settings Settings) ([]string, error) {
	var combinedPatterns []string
	skippedDirectories := map[string]struct{}{utils.GitDirectoryName: {}}

	if settings.UseDefaultExcludes {
		included := make(map[string]struct{}, len(settings.Include))
		for _, pattern := range settings.Include {
			included[strings.TrimSpace(pattern)] = struct{}{}
		}
		for _, pattern := range DefaultExcludePatterns {
			if _, overridden := included[pattern]; overridden {
				continue
			}
			combinedPatterns = append(combinedPatterns, pattern)
			if name, isPlainDirectory := plainDirectoryName(pattern); isPlainDirectory {
				skippedDirectories[name] = struct{}{}
			}
		}
	}

	if settings.UseIgnoreFile {
		ignorePatterns, loadError := LoadRecursiveIgnorePatterns(ctx, rootDirectoryPath, skippedDirectories, settings.MaxDepth)
		if loadError != nil {
			return nil, loadError
		}
		combinedPatterns = append(combinedPatterns, ignorePatterns...)
	}

	combinedPatterns = append(combinedPatterns, settings.Exclude...)
	return utils.DeduplicatePatterns(combinedPatterns), nil
}

func plainDirectoryName(pattern string) (string, bool) {
	if !strings.HasSuffix(pattern, directorySuffix) {
		return "", false
	}
	name := strings.TrimSuffix(pattern, directorySuffix)
	if name == "" || strings.Contains(name, "/") || strings.ContainsAny(name, wildcardSymbols) {
		return "", false
	}
	return name, true
}
