package textutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	protoSource := []byte("syntax = \"proto3\";\n\npackage orders.v1;\n")

	// Serialized descriptor sets carry null bytes early on.
	descriptorBlob := append([]byte{0x0a, 0x00, 0x12}, protoSource...)

	nullAtWindowEdge := make([]byte, BinarySniffLength)
	nullAtWindowEdge[BinarySniffLength-1] = 0x00

	nullPastWindow := bytes.Repeat([]byte{'a'}, BinarySniffLength+100)
	nullPastWindow[BinarySniffLength+50] = 0x00

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"nil", nil, false},
		{"empty", []byte{}, false},
		{"proto_source", protoSource, false},
		{"descriptor_blob", descriptorBlob, true},
		{"null_at_window_edge", nullAtWindowEdge, true},
		{"null_past_window", nullPastWindow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsBinary(tt.data))
		})
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want int
	}{
		{"empty", "", 0},
		{"no_trailing_newline", "message Order {}", 1},
		{"trailing_newline", "message Order {}\n", 1},
		{"multi", "syntax = \"proto3\";\n\nmessage Order {}\n", 3},
		{"partial_last_line", "a\nb\nc", 3},
		{"blank_lines", "\n\n\n", 3},
		{"large", strings.Repeat("import \"other.proto\";\n", 10000), 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, CountLines([]byte(tt.data)))
		})
	}
}
