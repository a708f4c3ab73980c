package ingest

import "errors"

var (
	// ErrPathNotFound reports a traversal root that does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrConfigInvalid reports a malformed pattern or a non-positive limit.
	ErrConfigInvalid = errors.New("invalid traversal configuration")
)

const (
	errorPathMissingFormat      = "%w: path '%s' does not exist"
	errorStatRootFormat         = "stat failed for '%s': %w"
	errorAbsolutePathFormat     = "abs failed for '%s': %w"
	errorNonPositiveLimitFormat = "%w: %s must be positive, got %d"
	errorNegativeLimitFormat    = "%w: %s must not be negative, got %d"
	errorPatternFormat          = "%w: %w"
	errorIgnoreRulesFormat      = "load ignore rules: %w"
	errorTokenCountFormat       = "count tokens: %w"

	warningUnreadableEntry  = "skipping unreadable entry"
	warningNotebookFallback = "notebook conversion failed, keeping raw content"
	debugTraversalFinished  = "traversal finished"
	debugTraversalCancelled = "traversal cancelled"

	errorIrregularFile = "not a regular file"

	maxFileSizeLimitName  = "max file size"
	maxTotalSizeLimitName = "max total size"
	maxDepthLimitName     = "max depth"
	maxFilesLimitName     = "max files"
)
