package output_test

import (
	"strings"
	"testing"

	"github.com/temirov/digest/internal/output"
	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/types"
)

const separator = "================================================"

func sampleTree() *types.Node {
	return &types.Node{
		Path: types.RootNodePath,
		Name: "project",
		Kind: types.NodeKindDirectory,
		Size: 27,
		Children: []*types.Node{
			{Path: "a.txt", Name: "a.txt", Kind: types.NodeKindFile, Size: 5, Depth: 1, Content: "hello", ContentLoaded: true},
			{Path: "big.txt", Name: "big.txt", Kind: types.NodeKindFile, Size: 6, Depth: 1, IsTruncated: true, TruncationReason: types.TruncationFileSize},
			{Path: "image.png", Name: "image.png", Kind: types.NodeKindFile, Size: 4, Depth: 1, IsBinary: true},
			{Path: "link", Name: "link", Kind: types.NodeKindSymlink, Depth: 1, SymlinkTarget: "a.txt"},
			{
				Path:  "sub",
				Name:  "sub",
				Kind:  types.NodeKindDirectory,
				Size:  12,
				Depth: 1,
				Children: []*types.Node{
					{Path: "sub/c.txt", Name: "c.txt", Kind: types.NodeKindFile, Size: 10, Depth: 2, Content: "0123456789", ContentLoaded: true},
					{Path: "sub/deep", Name: "deep", Kind: types.NodeKindDirectory, Depth: 2, IsTruncated: true, TruncationReason: types.TruncationDepth},
					{Path: "sub/locked.txt", Name: "locked.txt", Kind: types.NodeKindFile, Depth: 2, Error: "permission denied"},
				},
			},
		},
	}
}

func TestFormatTreeRendersConnectorsAndMarkers(t *testing.T) {
	expected := "Directory structure:\n" +
		"└── project/\n" +
		"    ├── a.txt\n" +
		"    ├── big.txt [truncated: max file size]\n" +
		"    ├── image.png [binary]\n" +
		"    ├── link -> a.txt\n" +
		"    └── sub/\n" +
		"        ├── c.txt\n" +
		"        ├── deep/ [truncated: max depth]\n" +
		"        └── locked.txt [error: permission denied]\n"
	actual := output.FormatTree(sampleTree())
	if actual != expected {
		t.Fatalf("unexpected tree:\n%s\nexpected:\n%s", actual, expected)
	}
}

func TestFormatContentEmitsBlocksInTreeOrder(t *testing.T) {
	content := output.FormatContent(sampleTree())

	expectedBlocks := []string{
		separator + "\nFILE: a.txt\n" + separator + "\nhello\n\n",
		separator + "\nFILE: big.txt\n" + separator + "\n[file too large]\n\n",
		separator + "\nFILE: image.png\n" + separator + "\n[binary file omitted]\n\n",
		separator + "\nFILE: sub/c.txt\n" + separator + "\n0123456789\n\n",
		separator + "\nFILE: sub/locked.txt\n" + separator + "\n[unreadable file: permission denied]\n\n",
	}
	if content != strings.Join(expectedBlocks, "") {
		t.Fatalf("unexpected content:\n%s", content)
	}
	if strings.Contains(content, "FILE: link") {
		t.Fatalf("symlinks must not produce content blocks")
	}
}

func TestFormatContentForSingleFileRoot(t *testing.T) {
	root := &types.Node{Path: types.RootNodePath, Name: "main.go", Kind: types.NodeKindFile, Size: 12, Content: "package main", ContentLoaded: true}
	content := output.FormatContent(root)
	if !strings.Contains(content, "FILE: main.go\n") {
		t.Fatalf("expected root file to be labeled by name, got %q", content)
	}
	tree := output.FormatTree(root)
	if tree != "Directory structure:\n└── main.go\n" {
		t.Fatalf("unexpected single file tree %q", tree)
	}
}

func TestFormatSummary(t *testing.T) {
	testCases := []struct {
		name     string
		totals   stats.Totals
		options  output.SummaryOptions
		expected string
	}{
		{
			name:     "directory_defaults",
			totals:   stats.Totals{FilesIncluded: 2, BytesIncluded: 15},
			options:  output.SummaryOptions{Name: "project"},
			expected: "Directory: project\nFiles analyzed: 2\nTotal size: 15b\n",
		},
		{
			name:   "repository_with_tokens_and_truncation",
			totals: stats.Totals{FilesIncluded: 1, BytesIncluded: 2048, Truncated: true, FileSizeTruncated: true, DepthTruncated: true},
			options: output.SummaryOptions{
				Label:         "Repository",
				Name:          "octo/widgets",
				Branch:        "main",
				Subpath:       "/docs",
				TokenEstimate: "1.2k",
			},
			expected: "Repository: octo/widgets\nBranch: main\nSubpath: /docs\nFiles analyzed: 1\nTotal size: 2kb\n" +
				"Truncated: max file size, max depth\nEstimated tokens: 1.2k\n",
		},
		{
			name:     "repository_at_tag",
			totals:   stats.Totals{FilesIncluded: 1, BytesIncluded: 3},
			options:  output.SummaryOptions{Label: "Repository", Name: "octo/widgets", Tag: "v1.2.0"},
			expected: "Repository: octo/widgets\nTag: v1.2.0\nFiles analyzed: 1\nTotal size: 3b\n",
		},
		{
			name:     "cancelled",
			totals:   stats.Totals{Cancelled: true},
			options:  output.SummaryOptions{Name: "project"},
			expected: "Directory: project\nFiles analyzed: 0\nTotal size: 0b\nStatus: cancelled\n",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			actual := output.FormatSummary(testCase.totals, testCase.options)
			if actual != testCase.expected {
				t.Fatalf("unexpected summary:\n%q\nexpected:\n%q", actual, testCase.expected)
			}
		})
	}
}

func TestFormatDefaultsNameToRoot(t *testing.T) {
	summary, tree, content := output.Format(sampleTree(), stats.Totals{FilesIncluded: 2}, output.SummaryOptions{})
	if !strings.HasPrefix(summary, "Directory: project\n") {
		t.Fatalf("expected summary to use root name, got %q", summary)
	}
	if !strings.HasPrefix(tree, "Directory structure:\n") || !strings.HasPrefix(content, separator) {
		t.Fatalf("unexpected sections: %q / %q", tree, content)
	}
}

func TestFileCountTruncationRendersMarkerAndPlaceholder(t *testing.T) {
	root := &types.Node{
		Path: types.RootNodePath,
		Name: "project",
		Kind: types.NodeKindDirectory,
		Size: 3,
		Children: []*types.Node{
			{Path: "late.txt", Name: "late.txt", Kind: types.NodeKindFile, Size: 3, Depth: 1, IsTruncated: true, TruncationReason: types.TruncationFileCount},
		},
	}
	tree := output.FormatTree(root)
	if !strings.Contains(tree, "late.txt [truncated: max files]") {
		t.Fatalf("expected file count marker in tree:\n%s", tree)
	}
	content := output.FormatContent(root)
	if !strings.Contains(content, "[content omitted: file limit reached]") {
		t.Fatalf("expected file count placeholder in content:\n%s", content)
	}

	var totals stats.Totals
	totals.RecordFileCountTruncation()
	summary := output.FormatSummary(totals, output.SummaryOptions{Name: "project"})
	if !strings.Contains(summary, "max files") {
		t.Fatalf("expected max files reason in summary:\n%s", summary)
	}
}
