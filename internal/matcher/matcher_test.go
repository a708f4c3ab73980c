package matcher_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/digest/internal/matcher"
)

func TestCompileRejectsInvalidPatterns(t *testing.T) {
	testCases := []struct {
		name    string
		include []string
		exclude []string
	}{
		{name: "empty_include", include: []string{"  "}},
		{name: "unterminated_class", exclude: []string{"[abc"}},
		{name: "bare_slash", exclude: []string{"/"}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, compileErr := matcher.Compile(testCase.include, testCase.exclude)
			if !errors.Is(compileErr, matcher.ErrInvalidPattern) {
				t.Fatalf("expected ErrInvalidPattern, got %v", compileErr)
			}
		})
	}
}

func TestRulesAdmits(t *testing.T) {
	testCases := []struct {
		name        string
		include     []string
		exclude     []string
		path        string
		isDirectory bool
		expected    bool
	}{
		{name: "no_patterns_admit_everything", path: "a/b/c.txt", expected: true},
		{name: "basename_exclude_matches_nested", exclude: []string{"*.bin"}, path: "sub/b.bin", expected: false},
		{name: "basename_exclude_matches_root", exclude: []string{"*.bin"}, path: "b.bin", expected: false},
		{name: "include_filters_files", include: []string{"*.go"}, path: "docs/readme.md", expected: false},
		{name: "include_admits_nested_match", include: []string{"*.go"}, path: "cmd/main.go", expected: true},
		{name: "include_ignored_for_directories", include: []string{"*.go"}, path: "cmd", isDirectory: true, expected: true},
		{name: "exclude_beats_include", include: []string{"*.go"}, exclude: []string{"*_test.go"}, path: "pkg/a_test.go", expected: false},
		{name: "double_star_exclude", exclude: []string{"**/generated/**"}, path: "pkg/generated/x.go", expected: false},
		{name: "anchored_exclude_only_at_root", exclude: []string{"/build"}, path: "src/build", isDirectory: true, expected: true},
		{name: "anchored_exclude_matches_root", exclude: []string{"/build"}, path: "build", isDirectory: true, expected: false},
		{name: "directory_only_pattern_skips_files", exclude: []string{"vendor/"}, path: "vendor", expected: true},
		{name: "directory_only_pattern_matches_directory", exclude: []string{"vendor/"}, path: "lib/vendor", isDirectory: true, expected: false},
		{name: "case_sensitive", exclude: []string{"*.TXT"}, path: "a.txt", expected: true},
		{name: "question_mark", exclude: []string{"file?.log"}, path: "logs/file1.log", expected: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			rules, compileErr := matcher.Compile(testCase.include, testCase.exclude)
			if compileErr != nil {
				t.Fatalf("Compile error: %v", compileErr)
			}
			actual := rules.Admits(testCase.path, testCase.isDirectory)
			if actual != testCase.expected {
				t.Fatalf("Admits(%q, %t) = %t, expected %t", testCase.path, testCase.isDirectory, actual, testCase.expected)
			}
		})
	}
}

func TestEscapeLiteralMatchesOnlyThatPath(t *testing.T) {
	testCases := []struct {
		name       string
		literal    string
		matching   string
		unmatching string
	}{
		{name: "character_class", literal: "snap[1].txt", matching: "snap[1].txt", unmatching: "snap1.txt"},
		{name: "unterminated_class", literal: "out[.txt", matching: "out[.txt", unmatching: "out.txt"},
		{name: "wildcards", literal: "notes/*?.md", matching: "notes/*?.md", unmatching: "notes/ab.md"},
		{name: "braces_and_backslash", literal: `logs/{a,b}\x.log`, matching: `logs/{a,b}\x.log`, unmatching: "logs/a.log"},
		{name: "plain", literal: "digest.txt", matching: "digest.txt", unmatching: "other.txt"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			rules, compileErr := matcher.Compile(nil, []string{"/" + matcher.EscapeLiteral(testCase.literal)})
			if compileErr != nil {
				t.Fatalf("Compile error: %v", compileErr)
			}
			if rules.Admits(testCase.matching, false) {
				t.Fatalf("expected %q to be excluded", testCase.matching)
			}
			if !rules.Admits(testCase.unmatching, false) {
				t.Fatalf("expected %q to be admitted", testCase.unmatching)
			}
		})
	}
}

func TestRulesHasIncludes(t *testing.T) {
	withIncludes, _ := matcher.Compile([]string{"*.go"}, nil)
	withoutIncludes, _ := matcher.Compile(nil, []string{"*.go"})
	if !withIncludes.HasIncludes() {
		t.Fatalf("expected include rules to be reported")
	}
	if withoutIncludes.HasIncludes() {
		t.Fatalf("expected no include rules")
	}
}

func TestWithGitignoreExcludesListedEntries(t *testing.T) {
	rootDirectory := t.TempDir()
	gitignoreContent := "*.log\nbuild/\n"
	if err := os.WriteFile(filepath.Join(rootDirectory, ".gitignore"), []byte(gitignoreContent), 0o600); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	baseRules, compileErr := matcher.Compile(nil, nil)
	if compileErr != nil {
		t.Fatalf("Compile error: %v", compileErr)
	}
	rules, loadErr := baseRules.WithGitignore(rootDirectory)
	if loadErr != nil {
		t.Fatalf("WithGitignore error: %v", loadErr)
	}
	if !rules.Excluded("debug.log", false) {
		t.Fatalf("expected debug.log to be excluded")
	}
	if !rules.Excluded("build", true) {
		t.Fatalf("expected build directory to be excluded")
	}
	if rules.Excluded("main.go", false) {
		t.Fatalf("expected main.go to be kept")
	}
	if baseRules.Excluded("debug.log", false) {
		t.Fatalf("expected original rules to stay unchanged")
	}
}

func TestWithGitignoreMissingFile(t *testing.T) {
	baseRules, _ := matcher.Compile(nil, nil)
	rules, loadErr := baseRules.WithGitignore(t.TempDir())
	if loadErr != nil {
		t.Fatalf("WithGitignore error: %v", loadErr)
	}
	if rules.Excluded("anything.txt", false) {
		t.Fatalf("expected no exclusions without .gitignore")
	}
}
