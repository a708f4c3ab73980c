// Package tokenizer estimates token counts of digest text with tiktoken encodings.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config selects the encoding.
type Config struct {
	// Model is a model name such as gpt-4o or an encoding name such as o200k_base.
	Model string
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
	// FallbackEncoding is used for models no encoding is known for.
	FallbackEncoding = "cl100k_base"

	errorLoadEncodingFormat = "load %s encoding: %w"
)

var errMissingEncoding = errors.New("tokenizer has no encoding")

var encodingNames = []string{"o200k_base", "cl100k_base", "p50k_base", "p50k_edit", "r50k_base"}

// modelFamilies maps model name prefixes to encodings. Longer prefixes come
// first so gpt-4o is not taken for gpt-4.
var modelFamilies = []struct {
	prefix   string
	encoding string
}{
	{prefix: "gpt-4o", encoding: "o200k_base"},
	{prefix: "gpt-4.1", encoding: "o200k_base"},
	{prefix: "gpt-4.5", encoding: "o200k_base"},
	{prefix: "chatgpt-4o", encoding: "o200k_base"},
	{prefix: "o1", encoding: "o200k_base"},
	{prefix: "o3", encoding: "o200k_base"},
	{prefix: "o4", encoding: "o200k_base"},
	{prefix: "gpt-4", encoding: "cl100k_base"},
	{prefix: "gpt-3.5", encoding: "cl100k_base"},
	{prefix: "text-embedding", encoding: "cl100k_base"},
	{prefix: "text-davinci-edit", encoding: "p50k_edit"},
	{prefix: "code-davinci-edit", encoding: "p50k_edit"},
	{prefix: "text-davinci-002", encoding: "p50k_base"},
	{prefix: "text-davinci-003", encoding: "p50k_base"},
	{prefix: "code-", encoding: "p50k_base"},
	{prefix: "davinci", encoding: "r50k_base"},
	{prefix: "curie", encoding: "r50k_base"},
	{prefix: "babbage", encoding: "r50k_base"},
	{prefix: "ada", encoding: "r50k_base"},
}

// EncodingFor returns the encoding used for model and whether it was
// recognised. Encoding names map to themselves.
func EncodingFor(model string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(model))
	if normalized == "" {
		normalized = DefaultModel
	}
	for _, name := range encodingNames {
		if normalized == name {
			return name, true
		}
	}
	for _, family := range modelFamilies {
		if strings.HasPrefix(normalized, family.prefix) {
			return family.encoding, true
		}
	}
	return FallbackEncoding, false
}

// NewCounter returns a Counter for cfg.Model and the encoding it selected.
// Unknown models use FallbackEncoding.
func NewCounter(cfg Config) (Counter, string, error) {
	encodingName, _ := EncodingFor(cfg.Model)
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, "", fmt.Errorf(errorLoadEncodingFormat, encodingName, err)
	}
	return encodingCounter{encoding: encoding, name: encodingName}, encodingName, nil
}

type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string {
	return counter.name
}

// CountString encodes input with special tokens treated as ordinary text.
func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errMissingEncoding
	}
	if input == "" {
		return 0, nil
	}
	return len(counter.encoding.Encode(input, nil, nil)), nil
}
