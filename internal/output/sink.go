package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

const (
	// StandardOutputTarget selects stdout as the output file.
	StandardOutputTarget = "-"

	outputFilePermissions = 0o644

	errorWriteFileFormat       = "write digest to %s: %w"
	errorCreateDirectoryFormat = "create output directory %s: %w"
	errorWriteStreamFormat     = "write digest: %w"
	errorClipboardFormat       = "copy digest to clipboard: %w"
)

// Sink receives a rendered document.
type Sink interface {
	Write(document string) error
}

// WriterSink writes documents to an io.Writer such as stdout.
type WriterSink struct {
	Writer io.Writer
}

// Write implements Sink.
func (sink WriterSink) Write(document string) error {
	if _, writeError := io.WriteString(sink.Writer, document); writeError != nil {
		return fmt.Errorf(errorWriteStreamFormat, writeError)
	}
	return nil
}

// FileSink writes documents to a file, creating parent directories as needed.
type FileSink struct {
	Path string
}

// Write implements Sink.
func (sink FileSink) Write(document string) error {
	parentDirectory := filepath.Dir(sink.Path)
	if mkdirError := os.MkdirAll(parentDirectory, 0o755); mkdirError != nil {
		return fmt.Errorf(errorCreateDirectoryFormat, parentDirectory, mkdirError)
	}
	if writeError := os.WriteFile(sink.Path, []byte(document), outputFilePermissions); writeError != nil {
		return fmt.Errorf(errorWriteFileFormat, sink.Path, writeError)
	}
	return nil
}

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// SystemClipboard implements Copier using github.com/atotto/clipboard.
type SystemClipboard struct{}

// Copy writes text to the system clipboard.
func (SystemClipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// ClipboardSink copies documents through a Copier.
type ClipboardSink struct {
	Copier Copier
}

// NewClipboardSink returns a sink backed by the system clipboard.
func NewClipboardSink() ClipboardSink {
	return ClipboardSink{Copier: SystemClipboard{}}
}

// Write implements Sink.
func (sink ClipboardSink) Write(document string) error {
	if copyError := sink.Copier.Copy(document); copyError != nil {
		return fmt.Errorf(errorClipboardFormat, copyError)
	}
	return nil
}

// NewTargetSink returns a stdout sink for "-" and a file sink otherwise.
func NewTargetSink(target string, stdout io.Writer) Sink {
	if target == StandardOutputTarget {
		return WriterSink{Writer: stdout}
	}
	return FileSink{Path: target}
}

var (
	_ Sink   = WriterSink{}
	_ Sink   = FileSink{}
	_ Sink   = ClipboardSink{}
	_ Copier = SystemClipboard{}
)
