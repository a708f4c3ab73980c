// Package query turns a command-line source (a local path, a repository URL or
// an owner/repo slug) into a normalized Query.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/digest/internal/utils"
)

// ErrInvalidSource reports a source that is neither a local path nor a recognizable repository reference.
var ErrInvalidSource = errors.New("invalid source")

const (
	// DefaultHost is assumed for owner/repo slugs.
	DefaultHost = "github.com"

	httpsScheme        = "https"
	httpScheme         = "http"
	sshUserPrefix      = "git@"
	gitSuffix          = ".git"
	schemeSeparator    = "://"
	slugSeparator      = "-"
	commitHashLength   = 40
	minimumRepoSegment = 2

	treeKind = "tree"
	blobKind = "blob"

	errorUnknownHostFormat    = "%w: unknown host '%s'"
	errorSchemeFormat         = "%w: unsupported scheme '%s'"
	errorRepositoryFormat     = "%w: '%s' does not name an owner and a repository"
	errorParseURLFormat       = "%w: %w"
	errorAbsoluteSourceFormat = "resolve '%s': %w"
	errorEmptySourceFormat    = "%w: empty source"
	errorConflictingFormat    = "%w: branch, commit and tag are mutually exclusive"
	errorInvalidCommitFormat  = "%w: '%s' is not a full commit hash"
)

var knownHosts = []string{
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"gitea.com",
	"codeberg.org",
}

var selfHostedPrefixes = []string{"git.", "gitlab.", "github."}

// Options carries explicit selections that override what the source implies.
type Options struct {
	Branch  string
	Commit  string
	Tag     string
	Subpath string
	// WorkingDirectory resolves relative local paths. Empty means the process working directory.
	WorkingDirectory string
}

// Query describes what to ingest.
type Query struct {
	Source     string
	IsRemote   bool
	Host       string
	Owner      string
	Repository string
	// URL is the canonical https clone URL of a remote source.
	URL string
	// Slug is owner-repo for remote sources and the base name for local ones.
	Slug string
	// Kind is "tree" or "blob" when the URL pointed inside the repository.
	Kind    string
	Branch  string
	Commit  string
	Tag     string
	Subpath string
	// LocalPath is the absolute path of a local source. Remote sources get it after cloning.
	LocalPath string
}

// DisplayName is the name used in the digest summary.
func (query Query) DisplayName() string {
	if query.IsRemote {
		return query.Owner + "/" + query.Repository
	}
	return query.Slug
}

// Parse classifies source and applies options on top of what the source encodes.
func Parse(source string, options Options) (Query, error) {
	trimmedSource := strings.TrimSpace(source)
	if trimmedSource == "" {
		return Query{}, fmt.Errorf(errorEmptySourceFormat, ErrInvalidSource)
	}
	if selectedReferences(options) > 1 {
		return Query{}, fmt.Errorf(errorConflictingFormat, ErrInvalidSource)
	}
	if options.Commit != "" && !isCommitHash(options.Commit) {
		return Query{}, fmt.Errorf(errorInvalidCommitFormat, ErrInvalidSource, options.Commit)
	}

	localCandidate := trimmedSource
	if options.WorkingDirectory != "" && !filepath.IsAbs(localCandidate) {
		localCandidate = filepath.Join(options.WorkingDirectory, localCandidate)
	}

	var parsed Query
	var parseError error
	if looksRemote(trimmedSource, localCandidate) {
		parsed, parseError = parseRemote(trimmedSource)
	} else {
		parsed, parseError = parseLocal(localCandidate)
	}
	if parseError != nil {
		return Query{}, parseError
	}
	parsed.Source = trimmedSource

	if options.Branch != "" {
		parsed.Branch = options.Branch
		parsed.Commit = ""
	}
	if options.Commit != "" {
		parsed.Commit = options.Commit
		parsed.Branch = ""
	}
	if options.Tag != "" {
		parsed.Tag = options.Tag
		parsed.Branch = ""
		parsed.Commit = ""
	}
	if options.Subpath != "" {
		parsed.Subpath = strings.Join(utils.SplitPathSegments(options.Subpath), "/")
	}
	return parsed, nil
}

// looksRemote reports whether source must be cloned. Existing paths always
// win, so a local directory named like a slug is still ingested locally.
func looksRemote(source string, localCandidate string) bool {
	if strings.HasPrefix(source, sshUserPrefix) {
		return true
	}
	if parsedURL, err := url.Parse(source); err == nil && parsedURL.Scheme != "" && strings.Contains(source, schemeSeparator) {
		return true
	}
	if _, statError := os.Stat(localCandidate); statError == nil {
		return false
	}
	segments := utils.SplitPathSegments(source)
	if len(segments) == 0 {
		return false
	}
	if isAcceptedHost(strings.ToLower(segments[0])) {
		return true
	}
	if looksLikeDomain(segments[0]) && len(segments) > minimumRepoSegment {
		return true
	}
	return len(segments) == minimumRepoSegment && !strings.HasPrefix(source, ".") && !filepath.IsAbs(source)
}

func parseRemote(source string) (Query, error) {
	normalized := source
	if strings.HasPrefix(normalized, sshUserPrefix) {
		normalized = httpsScheme + schemeSeparator + strings.Replace(strings.TrimPrefix(normalized, sshUserPrefix), ":", "/", 1)
	}
	if !strings.Contains(normalized, schemeSeparator) {
		segments := utils.SplitPathSegments(normalized)
		if len(segments) > 0 && !isAcceptedHost(strings.ToLower(segments[0])) {
			if strings.Contains(segments[0], ".") {
				return Query{}, fmt.Errorf(errorUnknownHostFormat, ErrInvalidSource, segments[0])
			}
			normalized = DefaultHost + "/" + normalized
		}
		normalized = httpsScheme + schemeSeparator + normalized
	}

	parsedURL, parseError := url.Parse(normalized)
	if parseError != nil {
		return Query{}, fmt.Errorf(errorParseURLFormat, ErrInvalidSource, parseError)
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != httpsScheme && scheme != httpScheme {
		return Query{}, fmt.Errorf(errorSchemeFormat, ErrInvalidSource, parsedURL.Scheme)
	}
	host := strings.ToLower(parsedURL.Host)
	if !isAcceptedHost(host) {
		return Query{}, fmt.Errorf(errorUnknownHostFormat, ErrInvalidSource, parsedURL.Host)
	}

	segments := utils.SplitPathSegments(parsedURL.Path)
	if len(segments) < minimumRepoSegment {
		return Query{}, fmt.Errorf(errorRepositoryFormat, ErrInvalidSource, source)
	}
	owner := strings.ToLower(segments[0])
	repository := strings.ToLower(strings.TrimSuffix(segments[1], gitSuffix))
	if owner == "" || repository == "" {
		return Query{}, fmt.Errorf(errorRepositoryFormat, ErrInvalidSource, source)
	}

	parsed := Query{
		IsRemote:   true,
		Host:       host,
		Owner:      owner,
		Repository: repository,
		URL:        httpsScheme + schemeSeparator + host + "/" + owner + "/" + repository,
		Slug:       owner + slugSeparator + repository,
	}
	applyLocation(&parsed, segments[minimumRepoSegment:])
	return parsed, nil
}

// applyLocation reads /tree/<ref>/<subpath> and /blob/<ref>/<path> suffixes.
// GitLab's /-/ separator is skipped. Other suffixes such as issues or pull
// requests select the repository root.
func applyLocation(parsed *Query, remaining []string) {
	if len(remaining) > 0 && remaining[0] == "-" {
		remaining = remaining[1:]
	}
	if len(remaining) < 2 {
		return
	}
	kind := remaining[0]
	if kind != treeKind && kind != blobKind {
		return
	}
	parsed.Kind = kind
	reference := remaining[1]
	if isCommitHash(reference) {
		parsed.Commit = reference
	} else {
		parsed.Branch = reference
	}
	parsed.Subpath = strings.Join(remaining[2:], "/")
}

func parseLocal(source string) (Query, error) {
	absolutePath, absoluteError := filepath.Abs(source)
	if absoluteError != nil {
		return Query{}, fmt.Errorf(errorAbsoluteSourceFormat, source, absoluteError)
	}
	return Query{
		Slug:      filepath.Base(absolutePath),
		LocalPath: absolutePath,
	}, nil
}

func isAcceptedHost(host string) bool {
	for _, knownHost := range knownHosts {
		if host == knownHost {
			return true
		}
	}
	for _, prefix := range selfHostedPrefixes {
		if strings.HasPrefix(host, prefix) && strings.Count(host, ".") >= 2 {
			return true
		}
	}
	return false
}

func looksLikeDomain(segment string) bool {
	return strings.Contains(segment, ".") && !strings.HasPrefix(segment, ".")
}

func selectedReferences(options Options) int {
	count := 0
	for _, reference := range []string{options.Branch, options.Commit, options.Tag} {
		if reference != "" {
			count++
		}
	}
	return count
}

func isCommitHash(candidate string) bool {
	if len(candidate) != commitHashLength {
		return false
	}
	for _, character := range candidate {
		isDigit := character >= '0' && character <= '9'
		isHexLetter := (character >= 'a' && character <= 'f') || (character >= 'A' && character <= 'F')
		if !isDigit && !isHexLetter {
			return false
		}
	}
	return true
}
