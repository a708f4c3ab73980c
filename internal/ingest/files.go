package ingest

import (
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/temirov/digest/internal/types"
	"github.com/temirov/digest/internal/utils"
)

// visitFile records a regular file and loads its content when every limit
// allows it. Deferring builders stop after the size check.
func (walker *builder) visitFile(node *types.Node, absolutePath string, size int64) {
	walker.totals.RecordFile()
	node.Size = size
	if size > walker.config.MaxFileSize {
		markTruncated(node, types.TruncationFileSize)
		walker.totals.RecordFileSizeTruncation()
		return
	}
	if walker.deferContent {
		return
	}
	walker.loadContent(node, absolutePath)
}

// loadContent reads one file against the file cap and the content budget.
// Nothing is read for a file the budget refuses.
func (walker *builder) loadContent(node *types.Node, absolutePath string) {
	if !walker.budget.admitFile() {
		markTruncated(node, types.TruncationFileCount)
		walker.totals.RecordFileCountTruncation()
		return
	}

	// #nosec G304
	fileHandle, openError := os.Open(absolutePath)
	if openError != nil {
		walker.markUnreadable(node, openError)
		return
	}
	defer fileHandle.Close()

	sample, partial, sampleError := utils.ReadSample(fileHandle)
	if sampleError != nil {
		walker.markUnreadable(node, sampleError)
		return
	}
	if utils.IsBinarySample(sample, partial) {
		node.IsBinary = true
		walker.totals.RecordBinary()
		return
	}

	size := node.Size
	if !walker.budget.reserve(size) {
		markTruncated(node, types.TruncationTotalSize)
		walker.totals.RecordTotalSizeTruncation()
		return
	}

	content := sample
	if partial {
		remainingAllowance := walker.config.MaxFileSize - int64(len(sample)) + 1
		remainder, readError := io.ReadAll(io.LimitReader(fileHandle, remainingAllowance))
		if readError != nil {
			walker.budget.release(size)
			walker.markUnreadable(node, readError)
			return
		}
		content = append(content, remainder...)
	}
	// The file may have grown since it was listed.
	if int64(len(content)) > walker.config.MaxFileSize {
		walker.budget.release(size)
		markTruncated(node, types.TruncationFileSize)
		walker.totals.RecordFileSizeTruncation()
		return
	}

	text := string(content)
	if isNotebook(node.Name) {
		converted, convertError := convertNotebook(content)
		if convertError != nil {
			walker.logger.Warn(warningNotebookFallback, zap.String("path", node.Path), zap.Error(convertError))
		} else {
			text = converted
		}
	}
	node.Content = text
	node.ContentLoaded = true
	walker.totals.RecordIncluded(int64(len(text)), int64(utf8.RuneCountInString(text)))
}

// loadDeferred reads the files a parallel walk left unread, in depth-first
// tree order, so the content budget admits the same files a sequential walk
// would. Directory sizes are recomputed because unreadable files drop to zero.
func (walker *builder) loadDeferred(root *types.Node, absoluteRoot string) {
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
		if !awaitsContent(node) {
			continue
		}
		walker.loadContent(node, filepath.Join(absoluteRoot, filepath.FromSlash(node.Path)))
	}
	resizeDirectories(root)
}

func awaitsContent(node *types.Node) bool {
	return node.Kind == types.NodeKindFile &&
		node.Error == "" &&
		!node.IsTruncated &&
		!node.IsBinary &&
		!node.ContentLoaded
}

func resizeDirectories(node *types.Node) int64 {
	if !node.IsDirectory() {
		return node.Size
	}
	var total int64
	for _, child := range node.Children {
		total += resizeDirectories(child)
	}
	node.Size = total
	return total
}
