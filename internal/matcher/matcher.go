// Package matcher compiles include and exclude glob patterns into rules that
// are evaluated against paths relative to the traversal root.
package matcher

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/monochromegane/go-gitignore"

	"github.com/temirov/digest/internal/utils"
)

const (
	pathSegmentSeparator = "/"

	errorEmptyPatternFormat   = "%w: empty %s pattern"
	errorInvalidPatternFormat = "%w: %s pattern %q"
	errorLoadGitignoreFormat  = "loading %s: %w"

	includeRuleKind = "include"
	excludeRuleKind = "exclude"

	globEscape = `\`
)

// globMetacharacters are the bytes doublestar treats as syntax.
const globMetacharacters = `\*?[]{}`

// ErrInvalidPattern reports a pattern that cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// rule is one compiled glob.
//
// A glob without a slash is also tried against the entry's base name. A
// leading slash anchors the glob at the root and a trailing slash limits it to
// directories.
type rule struct {
	source        string
	glob          string
	matchBaseName bool
	directoryOnly bool
}

func compileRule(pattern string, kind string) (rule, error) {
	source := strings.TrimSpace(pattern)
	glob := filepath.ToSlash(source)
	if glob == "" {
		return rule{}, fmt.Errorf(errorEmptyPatternFormat, ErrInvalidPattern, kind)
	}
	directoryOnly := strings.HasSuffix(glob, pathSegmentSeparator)
	glob = strings.TrimSuffix(glob, pathSegmentSeparator)
	anchored := strings.HasPrefix(glob, pathSegmentSeparator)
	glob = strings.TrimPrefix(glob, pathSegmentSeparator)
	if glob == "" || !doublestar.ValidatePattern(glob) {
		return rule{}, fmt.Errorf(errorInvalidPatternFormat, ErrInvalidPattern, kind, source)
	}
	return rule{
		source:        source,
		glob:          glob,
		matchBaseName: !anchored && !strings.Contains(glob, pathSegmentSeparator),
		directoryOnly: directoryOnly,
	}, nil
}

func (compiled rule) matches(relativePath string, isDirectory bool) bool {
	if compiled.directoryOnly && !isDirectory {
		return false
	}
	if matched, _ := doublestar.Match(compiled.glob, relativePath); matched {
		return true
	}
	if compiled.matchBaseName {
		matched, _ := doublestar.Match(compiled.glob, path.Base(relativePath))
		return matched
	}
	return false
}

// EscapeLiteral quotes every glob metacharacter of a literal path so the
// resulting pattern matches that path and nothing else.
func EscapeLiteral(literal string) string {
	if !strings.ContainsAny(literal, globMetacharacters) {
		return literal
	}
	var builder strings.Builder
	builder.Grow(len(literal) * 2)
	for _, character := range literal {
		if strings.ContainsRune(globMetacharacters, character) {
			builder.WriteString(globEscape)
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

// Rules is the precompiled form of a traversal's include and exclude patterns.
// A Rules value is read-only after construction and safe for concurrent use.
type Rules struct {
	includeRules []rule
	excludeRules []rule
	gitignore    gitignore.IgnoreMatcher
	rootPath     string
}

// Compile validates and compiles the include and exclude patterns once.
func Compile(includePatterns []string, excludePatterns []string) (*Rules, error) {
	rules := &Rules{}
	for _, pattern := range includePatterns {
		compiled, compileError := compileRule(pattern, includeRuleKind)
		if compileError != nil {
			return nil, compileError
		}
		rules.includeRules = append(rules.includeRules, compiled)
	}
	for _, pattern := range excludePatterns {
		compiled, compileError := compileRule(pattern, excludeRuleKind)
		if compileError != nil {
			return nil, compileError
		}
		rules.excludeRules = append(rules.excludeRules, compiled)
	}
	return rules, nil
}

// WithGitignore returns a copy of the rules that additionally honors the
// .gitignore file at the root of rootPath. A missing file leaves the rules unchanged.
func (rules *Rules) WithGitignore(rootPath string) (*Rules, error) {
	gitignorePath := filepath.Join(rootPath, utils.GitIgnoreFileName)
	if _, statError := os.Stat(gitignorePath); statError != nil {
		if errors.Is(statError, os.ErrNotExist) {
			return rules, nil
		}
		return nil, fmt.Errorf(errorLoadGitignoreFormat, utils.GitIgnoreFileName, statError)
	}
	ignoreMatcher, loadError := gitignore.NewGitIgnore(gitignorePath, rootPath)
	if loadError != nil {
		return nil, fmt.Errorf(errorLoadGitignoreFormat, utils.GitIgnoreFileName, loadError)
	}
	extended := *rules
	extended.gitignore = ignoreMatcher
	extended.rootPath = rootPath
	return &extended, nil
}

// HasIncludes reports whether any include pattern was supplied.
func (rules *Rules) HasIncludes() bool {
	return len(rules.includeRules) > 0
}

// Excluded reports whether an entry matches an exclude pattern or the
// .gitignore rules. An excluded directory is never descended into.
func (rules *Rules) Excluded(relativePath string, isDirectory bool) bool {
	for _, compiled := range rules.excludeRules {
		if compiled.matches(relativePath, isDirectory) {
			return true
		}
	}
	if rules.gitignore != nil {
		return rules.gitignore.Match(filepath.Join(rules.rootPath, filepath.FromSlash(relativePath)), isDirectory)
	}
	return false
}

// Included reports whether a file or symlink passes the include patterns.
// Directories are never filtered by include patterns.
func (rules *Rules) Included(relativePath string) bool {
	if len(rules.includeRules) == 0 {
		return true
	}
	for _, compiled := range rules.includeRules {
		if compiled.matches(relativePath, false) {
			return true
		}
	}
	return false
}

// Admits applies exclude-over-include precedence to a single entry.
func (rules *Rules) Admits(relativePath string, isDirectory bool) bool {
	if rules.Excluded(relativePath, isDirectory) {
		return false
	}
	return isDirectory || rules.Included(relativePath)
}
