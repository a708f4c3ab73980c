package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/temirov/digest/internal/stats"
	"github.com/temirov/digest/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	errorUnsupportedFormat = "unsupported output format '%s'"
	errorEncodeFormat      = "encode %s document: %w"
)

// Renderer turns a digest into the document written to a sink.
type Renderer interface {
	Render(digest types.Digest) (string, error)
}

// NewRenderer returns the renderer for the named format.
func NewRenderer(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case types.FormatText, "":
		return textRenderer{}, nil
	case types.FormatJSON:
		return jsonRenderer{}, nil
	case types.FormatXML:
		return xmlRenderer{}, nil
	default:
		return nil, fmt.Errorf(errorUnsupportedFormat, format)
	}
}

// IsSupportedFormat reports whether the provided format is recognized.
func IsSupportedFormat(format string) bool {
	_, rendererError := NewRenderer(format)
	return rendererError == nil
}

type textRenderer struct{}

func (textRenderer) Render(digest types.Digest) (string, error) {
	return digest.Text(), nil
}

// digestDocument is the structured envelope shared by the json and xml renderers.
type digestDocument struct {
	XMLName    xml.Name     `json:"-" xml:"digest"`
	Summary    string       `json:"summary" xml:"summary"`
	Tree       string       `json:"tree" xml:"tree"`
	Content    string       `json:"content" xml:"content"`
	TokenCount *int         `json:"tokens,omitempty" xml:"tokens,omitempty"`
	Stats      stats.Totals `json:"stats" xml:"stats"`
	Root       *types.Node  `json:"root,omitempty" xml:"root>node,omitempty"`
}

func newDigestDocument(digest types.Digest) digestDocument {
	document := digestDocument{
		Summary: digest.Summary,
		Tree:    digest.Tree,
		Content: digest.Content,
		Stats:   digest.Stats,
		Root:    digest.Root,
	}
	if digest.TokenCount >= 0 {
		tokenCount := digest.TokenCount
		document.TokenCount = &tokenCount
	}
	return document
}

type jsonRenderer struct{}

func (jsonRenderer) Render(digest types.Digest) (string, error) {
	encoded, encodeError := json.MarshalIndent(newDigestDocument(digest), indentPrefix, indentSpacer)
	if encodeError != nil {
		return "", fmt.Errorf(errorEncodeFormat, types.FormatJSON, encodeError)
	}
	return string(encoded) + "\n", nil
}

type xmlRenderer struct{}

func (xmlRenderer) Render(digest types.Digest) (string, error) {
	encoded, encodeError := xml.MarshalIndent(newDigestDocument(digest), indentPrefix, indentSpacer)
	if encodeError != nil {
		return "", fmt.Errorf(errorEncodeFormat, types.FormatXML, encodeError)
	}
	return xml.Header + string(encoded) + "\n", nil
}
