// Package output renders ingested trees into digest sections and documents.
package output

import (
	"fmt"
	"strings"

	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/types"
	"github.com/temirov/digest/internal/utils"
)

const (
	treeHeader          = "Directory structure:\n"
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	directorySuffix     = "/"
	symlinkArrow        = " -> "

	binaryMarker      = " [binary]"
	errorMarkerFormat = " [error: %s]"
	fileSizeMarker    = " [truncated: max file size]"
	totalSizeMarker   = " [truncated: max total size]"
	depthMarker       = " [truncated: max depth]"
	fileCountMarker   = " [truncated: max files]"

	contentFileHeader           = "FILE: "
	binaryPlaceholder           = "[binary file omitted]"
	fileSizePlaceholder         = "[file too large]"
	totalSizePlaceholder        = "[content omitted: total size limit reached]"
	fileCountPlaceholder        = "[content omitted: file limit reached]"
	unreadablePlaceholderFormat = "[unreadable file: %s]"

	summaryDirectoryLabel  = "Directory"
	summaryFieldFormat     = "%s: %s\n"
	summaryBranchLabel     = "Branch"
	summaryCommitLabel     = "Commit"
	summaryTagLabel        = "Tag"
	summarySubpathLabel    = "Subpath"
	summaryFilesLabel      = "Files analyzed"
	summarySizeLabel       = "Total size"
	summaryTruncatedLabel  = "Truncated"
	summaryStatusLabel     = "Status"
	summaryTokensLabel     = "Estimated tokens"
	summaryCancelledStatus = "cancelled"
	truncationSeparator    = ", "
)

// contentSeparator delimits each file block in the content section.
var contentSeparator = strings.Repeat("=", 48)

// SummaryOptions labels the summary header.
type SummaryOptions struct {
	// Label is "Directory" by default or "Repository" for cloned sources.
	Label         string
	Name          string
	Branch        string
	Commit        string
	Tag           string
	Subpath       string
	TokenEstimate string
}

// Format renders the three digest sections.
func Format(root *types.Node, totals stats.Totals, options SummaryOptions) (string, string, string) {
	if options.Name == "" && root != nil {
		options.Name = root.Name
	}
	return FormatSummary(totals, options), FormatTree(root), FormatContent(root)
}

// FormatSummary renders the header lines describing an ingestion.
func FormatSummary(totals stats.Totals, options SummaryOptions) string {
	label := options.Label
	if label == "" {
		label = summaryDirectoryLabel
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, summaryFieldFormat, label, options.Name)
	optionalFields := []struct {
		label string
		value string
	}{
		{label: summaryBranchLabel, value: options.Branch},
		{label: summaryCommitLabel, value: options.Commit},
		{label: summaryTagLabel, value: options.Tag},
		{label: summarySubpathLabel, value: options.Subpath},
	}
	for _, field := range optionalFields {
		if field.value != "" {
			fmt.Fprintf(&builder, summaryFieldFormat, field.label, field.value)
		}
	}
	fmt.Fprintf(&builder, "%s: %d\n", summaryFilesLabel, totals.FilesIncluded)
	fmt.Fprintf(&builder, summaryFieldFormat, summarySizeLabel, utils.FormatFileSize(totals.BytesIncluded))
	if reasons := totals.TruncationReasons(); len(reasons) > 0 {
		fmt.Fprintf(&builder, summaryFieldFormat, summaryTruncatedLabel, strings.Join(reasons, truncationSeparator))
	}
	if totals.Cancelled {
		fmt.Fprintf(&builder, summaryFieldFormat, summaryStatusLabel, summaryCancelledStatus)
	}
	if options.TokenEstimate != "" {
		fmt.Fprintf(&builder, summaryFieldFormat, summaryTokensLabel, options.TokenEstimate)
	}
	return builder.String()
}

type treeLine struct {
	node   *types.Node
	prefix string
	isLast bool
}

// FormatTree renders one line per node with box-drawing connectors, four
// columns per level.
func FormatTree(root *types.Node) string {
	var builder strings.Builder
	builder.WriteString(treeHeader)
	if root == nil {
		return builder.String()
	}
	pending := []treeLine{{node: root, isLast: true}}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		connector := treeBranchConnector
		childPrefix := current.prefix + treeBranchPadding
		if current.isLast {
			connector = treeLastConnector
			childPrefix = current.prefix + treeLastPadding
		}
		builder.WriteString(current.prefix)
		builder.WriteString(connector)
		builder.WriteString(nodeLabel(current.node))
		builder.WriteString("\n")

		children := current.node.Children
		for index := len(children) - 1; index >= 0; index-- {
			pending = append(pending, treeLine{
				node:   children[index],
				prefix: childPrefix,
				isLast: index == len(children)-1,
			})
		}
	}
	return builder.String()
}

func nodeLabel(node *types.Node) string {
	label := node.Name
	switch node.Kind {
	case types.NodeKindDirectory:
		label += directorySuffix
	case types.NodeKindSymlink:
		if node.SymlinkTarget != "" {
			label += symlinkArrow + node.SymlinkTarget
		}
	}
	switch {
	case node.Error != "":
		label += fmt.Sprintf(errorMarkerFormat, node.Error)
	case node.IsBinary:
		label += binaryMarker
	case node.TruncationReason == types.TruncationFileSize:
		label += fileSizeMarker
	case node.TruncationReason == types.TruncationTotalSize:
		label += totalSizeMarker
	case node.TruncationReason == types.TruncationDepth:
		label += depthMarker
	case node.TruncationReason == types.TruncationFileCount:
		label += fileCountMarker
	}
	return label
}

// FormatContent renders a block for every file node in tree order: the
// delimiter with the relative path, then the content or a placeholder, then a
// blank line.
func FormatContent(root *types.Node) string {
	var builder strings.Builder
	if root == nil {
		return ""
	}
	pending := []*types.Node{root}
	for len(pending) > 0 {
		node := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if node.IsDirectory() {
			for index := len(node.Children) - 1; index >= 0; index-- {
				pending = append(pending, node.Children[index])
			}
			continue
		}
		if node.Kind != types.NodeKindFile {
			continue
		}
		writeContentBlock(&builder, node)
	}
	return builder.String()
}

func writeContentBlock(builder *strings.Builder, node *types.Node) {
	displayPath := node.Path
	if displayPath == types.RootNodePath {
		displayPath = node.Name
	}
	builder.WriteString(contentSeparator)
	builder.WriteString("\n")
	builder.WriteString(contentFileHeader)
	builder.WriteString(displayPath)
	builder.WriteString("\n")
	builder.WriteString(contentSeparator)
	builder.WriteString("\n")
	builder.WriteString(contentBody(node))
	builder.WriteString("\n\n")
}

func contentBody(node *types.Node) string {
	switch {
	case node.Error != "":
		return fmt.Sprintf(unreadablePlaceholderFormat, node.Error)
	case node.IsBinary:
		return binaryPlaceholder
	case node.TruncationReason == types.TruncationFileSize:
		return fileSizePlaceholder
	case node.TruncationReason == types.TruncationTotalSize:
		return totalSizePlaceholder
	case node.TruncationReason == types.TruncationFileCount:
		return fileCountPlaceholder
	default:
		return node.Content
	}
}
