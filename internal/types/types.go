// Package types defines every cross‑package data structure used by the digest CLI.
package types

import (
	"encoding/xml"

	"github.com/temirov/digest/internal/stats"
)

// NodeKind identifies what a tree node represents on disk.
type NodeKind string

const (
	NodeKindFile      NodeKind = "file"
	NodeKindDirectory NodeKind = "directory"
	NodeKindSymlink   NodeKind = "symlink"
)

// TruncationReason explains why a node carries no content or no children.
type TruncationReason string

const (
	TruncationNone      TruncationReason = ""
	TruncationFileSize  TruncationReason = "max_file_size"
	TruncationTotalSize TruncationReason = "max_total_size"
	TruncationDepth     TruncationReason = "max_depth"
	TruncationFileCount TruncationReason = "max_files"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXML  = "xml"

	// RootNodePath is the relative path of the traversal root.
	RootNodePath = "."
)

// Node is one file, directory or symlink of an ingested tree. Nodes are
// immutable once returned from an ingestion.
type Node struct {
	XMLName          xml.Name         `json:"-" xml:"node"`
	Path             string           `json:"path" xml:"path"`
	Name             string           `json:"name" xml:"name"`
	Kind             NodeKind         `json:"kind" xml:"kind"`
	Size             int64            `json:"size" xml:"size"`
	Depth            int              `json:"depth" xml:"depth"`
	Children         []*Node          `json:"children,omitempty" xml:"children>node,omitempty"`
	Content          string           `json:"-" xml:"-"`
	ContentLoaded    bool             `json:"contentLoaded" xml:"contentLoaded"`
	IsBinary         bool             `json:"binary,omitempty" xml:"binary,omitempty"`
	IsTruncated      bool             `json:"truncated,omitempty" xml:"truncated,omitempty"`
	TruncationReason TruncationReason `json:"truncationReason,omitempty" xml:"truncationReason,omitempty"`
	SymlinkTarget    string           `json:"symlinkTarget,omitempty" xml:"symlinkTarget,omitempty"`
	Error            string           `json:"error,omitempty" xml:"error,omitempty"`
}

// IsDirectory reports whether the node is a directory.
func (node *Node) IsDirectory() bool {
	return node.Kind == NodeKindDirectory
}

// TraversalConfig carries the filters and limits of one ingestion.
type TraversalConfig struct {
	IncludePatterns []string
	ExcludePatterns []string
	MaxFileSize     int64
	MaxTotalSize    int64
	MaxDepth        int
	// MaxFiles caps how many files are read. Zero means no cap.
	MaxFiles int
}

// Digest is the rendered result of an ingestion.
type Digest struct {
	Summary string
	Tree    string
	Content string
	Stats   stats.Totals
	Root    *Node
	// TokenCount is -1 when no estimate was requested.
	TokenCount int
}

// Text joins the three digest sections into the single document written to disk.
func (digest Digest) Text() string {
	return digest.Summary + "\n" + digest.Tree + "\n" + digest.Content
}
