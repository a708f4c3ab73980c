package utils

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// SniffLength defines the maximum number of bytes inspected when detecting binary content.
const SniffLength = 8192

// IsBinary reports whether the provided byte slice appears to contain binary data.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}

// IsBinarySample classifies a leading sample of a file. When partial is true
// the sample may end in the middle of a multi-byte rune and that trailing
// fragment is not held against the file.
func IsBinarySample(sample []byte, partial bool) bool {
	if partial {
		sample = trimIncompleteRune(sample)
	}
	return IsBinary(sample)
}

// ReadSample reads up to SniffLength bytes from reader. The boolean result is
// true when the buffer was filled, meaning more data may follow.
func ReadSample(reader io.Reader) ([]byte, bool, error) {
	buffer := make([]byte, SniffLength)
	bytesRead, readError := io.ReadFull(reader, buffer)
	switch readError {
	case nil:
		return buffer, true, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return buffer[:bytesRead], false, nil
	default:
		return nil, false, readError
	}
}

func trimIncompleteRune(data []byte) []byte {
	for tailLength := 1; tailLength < utf8.UTFMax && tailLength <= len(data); tailLength++ {
		runeStart := len(data) - tailLength
		if !utf8.RuneStart(data[runeStart]) {
			continue
		}
		if utf8.FullRune(data[runeStart:]) {
			return data
		}
		return data[:runeStart]
	}
	return data
}
