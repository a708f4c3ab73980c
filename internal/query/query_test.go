package query_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/digest/internal/query"
)

const sampleCommit = "0123456789abcdef0123456789abcdef01234567"

func TestParseRemoteSources(t *testing.T) {
	testCases := []struct {
		name            string
		source          string
		options         query.Options
		expectedURL     string
		expectedDisplay string
		expectedBranch  string
		expectedCommit  string
		expectedSubpath string
		expectedKind    string
	}{
		{
			name:            "https_url",
			source:          "https://github.com/Octo/Widgets",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
		},
		{
			name:            "tree_with_subpath",
			source:          "https://github.com/octo/widgets/tree/main/src/lib",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
			expectedBranch:  "main",
			expectedSubpath: "src/lib",
			expectedKind:    "tree",
		},
		{
			name:            "gitlab_separator",
			source:          "https://gitlab.com/group/project/-/tree/dev/docs",
			expectedURL:     "https://gitlab.com/group/project",
			expectedDisplay: "group/project",
			expectedBranch:  "dev",
			expectedSubpath: "docs",
			expectedKind:    "tree",
		},
		{
			name:            "blob_at_commit",
			source:          "https://github.com/octo/widgets/blob/" + sampleCommit + "/README.md",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
			expectedCommit:  sampleCommit,
			expectedSubpath: "README.md",
			expectedKind:    "blob",
		},
		{
			name:            "host_without_scheme",
			source:          "bitbucket.org/team/tool.git",
			expectedURL:     "https://bitbucket.org/team/tool",
			expectedDisplay: "team/tool",
		},
		{
			name:            "ssh_form",
			source:          "git@github.com:octo/widgets.git",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
		},
		{
			name:            "slug",
			source:          "octo/widgets",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
		},
		{
			name:            "issues_select_root",
			source:          "https://github.com/octo/widgets/issues/12",
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
		},
		{
			name:            "self_hosted",
			source:          "https://gitlab.example.com/team/app",
			expectedURL:     "https://gitlab.example.com/team/app",
			expectedDisplay: "team/app",
		},
		{
			name:            "options_override_url",
			source:          "https://github.com/octo/widgets/tree/main/src",
			options:         query.Options{Branch: "release", Subpath: "/docs/guide/"},
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
			expectedBranch:  "release",
			expectedSubpath: "docs/guide",
			expectedKind:    "tree",
		},
		{
			name:            "commit_option_clears_branch",
			source:          "https://github.com/octo/widgets/tree/main",
			options:         query.Options{Commit: sampleCommit},
			expectedURL:     "https://github.com/octo/widgets",
			expectedDisplay: "octo/widgets",
			expectedCommit:  sampleCommit,
			expectedKind:    "tree",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			parsed, err := query.Parse(testCase.source, testCase.options)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if !parsed.IsRemote {
				t.Fatalf("expected remote query")
			}
			if parsed.URL != testCase.expectedURL {
				t.Fatalf("expected URL %q, got %q", testCase.expectedURL, parsed.URL)
			}
			if parsed.DisplayName() != testCase.expectedDisplay {
				t.Fatalf("expected display %q, got %q", testCase.expectedDisplay, parsed.DisplayName())
			}
			if parsed.Branch != testCase.expectedBranch || parsed.Commit != testCase.expectedCommit {
				t.Fatalf("unexpected refs branch=%q commit=%q", parsed.Branch, parsed.Commit)
			}
			if parsed.Subpath != testCase.expectedSubpath {
				t.Fatalf("expected subpath %q, got %q", testCase.expectedSubpath, parsed.Subpath)
			}
			if parsed.Kind != testCase.expectedKind {
				t.Fatalf("expected kind %q, got %q", testCase.expectedKind, parsed.Kind)
			}
			if parsed.LocalPath != "" {
				t.Fatalf("remote query must not have a local path before cloning")
			}
		})
	}
}

func TestParseLocalDirectory(t *testing.T) {
	rootDirectory := t.TempDir()
	parsed, err := query.Parse(rootDirectory, query.Options{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.IsRemote {
		t.Fatalf("expected local query")
	}
	if parsed.LocalPath != rootDirectory {
		t.Fatalf("expected local path %q, got %q", rootDirectory, parsed.LocalPath)
	}
	if parsed.DisplayName() != filepath.Base(rootDirectory) {
		t.Fatalf("unexpected display name %q", parsed.DisplayName())
	}
}

func TestParseRelativeLocalPath(t *testing.T) {
	parsed, err := query.Parse(".", query.Options{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.IsRemote || !filepath.IsAbs(parsed.LocalPath) {
		t.Fatalf("expected absolute local path, got %+v", parsed)
	}
}

func TestParseResolvesAgainstWorkingDirectory(t *testing.T) {
	workingDirectory := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workingDirectory, "octo", "widgets"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	parsed, err := query.Parse("octo/widgets", query.Options{WorkingDirectory: workingDirectory})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.IsRemote || parsed.LocalPath != filepath.Join(workingDirectory, "octo", "widgets") || parsed.Slug != "widgets" {
		t.Fatalf("expected existing directory to win over the slug form, got %+v", parsed)
	}
}

func TestParseTagOverridesUrlReference(t *testing.T) {
	parsed, err := query.Parse("https://github.com/octo/widgets/tree/main/docs", query.Options{Tag: "v1.0.0"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.Tag != "v1.0.0" || parsed.Branch != "" || parsed.Commit != "" {
		t.Fatalf("expected the tag to replace the URL branch: %+v", parsed)
	}
	if parsed.Subpath != "docs" {
		t.Fatalf("expected the subpath to survive, got %q", parsed.Subpath)
	}
}

func TestParseRejectsInvalidSources(t *testing.T) {
	testCases := []struct {
		name    string
		source  string
		options query.Options
	}{
		{name: "empty", source: "   "},
		{name: "unknown_host", source: "https://example.com/octo/widgets"},
		{name: "unknown_host_without_scheme", source: "example.com/octo/widgets"},
		{name: "unsupported_scheme", source: "ftp://github.com/octo/widgets"},
		{name: "missing_repository", source: "https://github.com/octo"},
		{name: "branch_and_commit", source: "octo/widgets", options: query.Options{Branch: "main", Commit: sampleCommit}},
		{name: "short_commit", source: "octo/widgets", options: query.Options{Commit: "abc123"}},
		{name: "branch_and_tag", source: "octo/widgets", options: query.Options{Branch: "main", Tag: "v1.0.0"}},
		{name: "commit_and_tag", source: "octo/widgets", options: query.Options{Commit: sampleCommit, Tag: "v1.0.0"}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, err := query.Parse(testCase.source, testCase.options)
			if !errors.Is(err, query.ErrInvalidSource) {
				t.Fatalf("expected ErrInvalidSource, got %v", err)
			}
		})
	}
}
