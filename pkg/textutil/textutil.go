// Package textutil provides byte-level text heuristics used when
// classifying and summarizing proto sources: binary detection and line
// counting.
package textutil

import "bytes"

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// IsBinary reports whether data looks like binary content, meaning a
// null byte occurs within the first BinarySniffLength bytes. Empty data
// is text.
func IsBinary(data []byte) bool {
	sniff := data[:min(len(data), BinarySniffLength)]

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data. A
// trailing line without a newline still counts; empty data has zero
// lines.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	full := bytes.Count(data, []byte{'\n'})
	if bytes.HasSuffix(data, []byte{'\n'}) {
		return full
	}

	return full + 1
}
