package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	notebookExtension     = ".ipynb"
	notebookCellSeparator = "\n\n"
	notebookCommentFence  = `"""`

	notebookCellCode     = "code"
	notebookCellMarkdown = "markdown"
	notebookCellRaw      = "raw"

	errorNotebookDecodeFormat   = "decode notebook: %w"
	errorNotebookCellTypeFormat = "unknown notebook cell type %q"
	errorNotebookSourceFormat   = "decode notebook cell source: %w"
)

var errNotebookMissingCells = errors.New("notebook has no cells array")

type notebookDocument struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

func isNotebook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), notebookExtension)
}

// convertNotebook turns a Jupyter notebook into a script: code cells are kept
// verbatim and markdown or raw cells become triple-quoted blocks. Empty cells
// are dropped and outputs are never included.
func convertNotebook(data []byte) (string, error) {
	var document notebookDocument
	if decodeError := json.Unmarshal(data, &document); decodeError != nil {
		return "", fmt.Errorf(errorNotebookDecodeFormat, decodeError)
	}
	if document.Cells == nil {
		return "", errNotebookMissingCells
	}
	blocks := make([]string, 0, len(document.Cells))
	for _, cell := range document.Cells {
		switch cell.CellType {
		case notebookCellCode, notebookCellMarkdown, notebookCellRaw:
		default:
			return "", fmt.Errorf(errorNotebookCellTypeFormat, cell.CellType)
		}
		source, sourceError := cellSource(cell.Source)
		if sourceError != nil {
			return "", sourceError
		}
		if source == "" {
			continue
		}
		if cell.CellType != notebookCellCode {
			source = notebookCommentFence + "\n" + source + "\n" + notebookCommentFence
		}
		blocks = append(blocks, source)
	}
	return strings.Join(blocks, notebookCellSeparator), nil
}

// cellSource accepts both layouts nbformat allows: a list of lines or a single string.
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var lines []string
	if json.Unmarshal(raw, &lines) == nil {
		return strings.Join(lines, ""), nil
	}
	var text string
	if decodeError := json.Unmarshal(raw, &text); decodeError != nil {
		return "", fmt.Errorf(errorNotebookSourceFormat, decodeError)
	}
	return text, nil
}
