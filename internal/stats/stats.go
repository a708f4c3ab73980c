// Package stats accumulates traversal totals for a single ingestion.
package stats

import "sync"

// Totals holds the running counters of one traversal. A Totals value is owned
// by exactly one builder; concurrent builders merge through an Aggregator.
type Totals struct {
	FilesVisited       int   `json:"filesVisited" xml:"filesVisited"`
	DirectoriesVisited int   `json:"directoriesVisited" xml:"directoriesVisited"`
	SymlinksVisited    int   `json:"symlinksVisited" xml:"symlinksVisited"`
	EntriesExcluded    int   `json:"entriesExcluded" xml:"entriesExcluded"`
	FilesIncluded      int   `json:"filesIncluded" xml:"filesIncluded"`
	BytesIncluded      int64 `json:"bytesIncluded" xml:"bytesIncluded"`
	CharactersIncluded int64 `json:"charactersIncluded" xml:"charactersIncluded"`
	BinaryFiles        int   `json:"binaryFiles" xml:"binaryFiles"`
	UnreadableEntries  int   `json:"unreadableEntries" xml:"unreadableEntries"`
	Truncated          bool  `json:"truncated" xml:"truncated"`
	FileSizeTruncated  bool  `json:"fileSizeTruncated" xml:"fileSizeTruncated"`
	TotalSizeTruncated bool  `json:"totalSizeTruncated" xml:"totalSizeTruncated"`
	DepthTruncated     bool  `json:"depthTruncated" xml:"depthTruncated"`
	FileCountTruncated bool  `json:"fileCountTruncated" xml:"fileCountTruncated"`
	Cancelled          bool  `json:"cancelled" xml:"cancelled"`
}

// RecordDirectory counts a directory whose entries were listed.
func (totals *Totals) RecordDirectory() {
	totals.DirectoriesVisited++
}

// RecordFile counts a regular file reached by the walk, whether or not its content is kept.
func (totals *Totals) RecordFile() {
	totals.FilesVisited++
}

// RecordSymlink counts a symbolic link recorded without being followed.
func (totals *Totals) RecordSymlink() {
	totals.SymlinksVisited++
}

// RecordExcluded counts an entry skipped by a pattern.
func (totals *Totals) RecordExcluded() {
	totals.EntriesExcluded++
}

// RecordBinary counts a file detected as binary.
func (totals *Totals) RecordBinary() {
	totals.BinaryFiles++
}

// RecordUnreadable counts an entry that could not be read.
func (totals *Totals) RecordUnreadable() {
	totals.UnreadableEntries++
}

// RecordIncluded counts a file whose content made it into the digest.
func (totals *Totals) RecordIncluded(byteCount int64, characterCount int64) {
	totals.FilesIncluded++
	totals.BytesIncluded += byteCount
	totals.CharactersIncluded += characterCount
}

// RecordFileSizeTruncation marks that a file exceeded the per-file limit.
func (totals *Totals) RecordFileSizeTruncation() {
	totals.FileSizeTruncated = true
	totals.Truncated = true
}

// RecordTotalSizeTruncation marks that the content budget ran out.
func (totals *Totals) RecordTotalSizeTruncation() {
	totals.TotalSizeTruncated = true
	totals.Truncated = true
}

// RecordDepthTruncation marks that a directory was cut at the depth limit.
func (totals *Totals) RecordDepthTruncation() {
	totals.DepthTruncated = true
	totals.Truncated = true
}

// RecordFileCountTruncation marks that the file count limit was reached.
func (totals *Totals) RecordFileCountTruncation() {
	totals.FileCountTruncated = true
	totals.Truncated = true
}

// MarkCancelled flags the traversal as interrupted.
func (totals *Totals) MarkCancelled() {
	totals.Cancelled = true
}

// Merge adds the counters of other to the receiver and ORs the flags.
func (totals *Totals) Merge(other Totals) {
	totals.FilesVisited += other.FilesVisited
	totals.DirectoriesVisited += other.DirectoriesVisited
	totals.SymlinksVisited += other.SymlinksVisited
	totals.EntriesExcluded += other.EntriesExcluded
	totals.FilesIncluded += other.FilesIncluded
	totals.BytesIncluded += other.BytesIncluded
	totals.CharactersIncluded += other.CharactersIncluded
	totals.BinaryFiles += other.BinaryFiles
	totals.UnreadableEntries += other.UnreadableEntries
	totals.Truncated = totals.Truncated || other.Truncated
	totals.FileSizeTruncated = totals.FileSizeTruncated || other.FileSizeTruncated
	totals.TotalSizeTruncated = totals.TotalSizeTruncated || other.TotalSizeTruncated
	totals.DepthTruncated = totals.DepthTruncated || other.DepthTruncated
	totals.FileCountTruncated = totals.FileCountTruncated || other.FileCountTruncated
	totals.Cancelled = totals.Cancelled || other.Cancelled
}

// TruncationReasons lists the active truncation causes in a fixed order.
func (totals Totals) TruncationReasons() []string {
	var reasons []string
	if totals.FileSizeTruncated {
		reasons = append(reasons, "max file size")
	}
	if totals.TotalSizeTruncated {
		reasons = append(reasons, "max total size")
	}
	if totals.DepthTruncated {
		reasons = append(reasons, "max depth")
	}
	if totals.FileCountTruncated {
		reasons = append(reasons, "max files")
	}
	return reasons
}

// Aggregator merges Totals produced by concurrent workers.
type Aggregator struct {
	mutex  sync.Mutex
	totals Totals
}

// Merge folds a worker's totals into the aggregate.
func (aggregator *Aggregator) Merge(other Totals) {
	aggregator.mutex.Lock()
	defer aggregator.mutex.Unlock()
	aggregator.totals.Merge(other)
}

// Snapshot returns a copy of the aggregated totals.
func (aggregator *Aggregator) Snapshot() Totals {
	aggregator.mutex.Lock()
	defer aggregator.mutex.Unlock()
	return aggregator.totals
}
