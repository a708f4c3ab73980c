// Package utils contains general helper functions used across the digest tool.
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// File and directory names shared across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".digestignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// ConfigFileName is the local configuration file name.
	ConfigFileName = ".digest.yaml"
	// GlobalConfigDirectoryName is the directory under the home directory holding global configuration.
	GlobalConfigDirectoryName = ".digest"
	// GlobalConfigFileName is the configuration file name inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
)

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

const (
	pathSegmentSeparator = "/"
	sizeUnitBase         = 1024
	tokenThousand        = 1_000
	tokenMillion         = 1_000_000
)

// DeduplicatePatterns removes duplicate and blank patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; !exists {
			encounteredPatterns[trimmedPattern] = struct{}{}
			result = append(result, trimmedPattern)
		}
	}
	return result
}

// JoinRelativePath appends name to a slash-separated relative parent path.
// The root is represented by ".".
func JoinRelativePath(parentPath, name string) string {
	if parentPath == "" || parentPath == "." {
		return name
	}
	return path.Join(parentPath, name)
}

// RelativePathOrSelf calculates the slash-separated path of fullPath relative to root.
// Returns "." if fullPath and root resolve to the same location and the cleaned
// fullPath if no relative form exists.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)
	if cleanPath == cleanRoot {
		return "."
	}
	relativePath, relErr := filepath.Rel(cleanRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// DescribeFileError strips the operation and path from filesystem errors so
// messages do not leak absolute locations into rendered output.
func DescribeFileError(err error) string {
	if err == nil {
		return EmptyString
	}
	var pathError *fs.PathError
	if errors.As(err, &pathError) {
		return pathError.Err.Error()
	}
	return err.Error()
}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0b"
	}
	units := []string{"b", "kb", "mb", "gb", "tb", "pb"}
	value := float64(bytes)
	unitIndex := 0
	for value >= sizeUnitBase && unitIndex < len(units)-1 {
		value /= sizeUnitBase
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%db", bytes)
	}
	if value < 10 {
		return strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0") + units[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}

// FormatTokenCount renders a token estimate as 999, 1.2k or 3.4M.
func FormatTokenCount(tokens int) string {
	switch {
	case tokens >= tokenMillion:
		return fmt.Sprintf("%.1fM", float64(tokens)/tokenMillion)
	case tokens >= tokenThousand:
		return fmt.Sprintf("%.1fk", float64(tokens)/tokenThousand)
	case tokens < 0:
		return "0"
	default:
		return fmt.Sprintf("%d", tokens)
	}
}

// SplitPathSegments splits a slash-separated relative path into its non-empty segments.
func SplitPathSegments(relativePath string) []string {
	rawSegments := strings.Split(filepath.ToSlash(relativePath), pathSegmentSeparator)
	segments := make([]string, 0, len(rawSegments))
	for _, segment := range rawSegments {
		if segment == "" || segment == "." {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}
