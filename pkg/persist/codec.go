// Package persist stores and restores typed state files through pluggable
// codecs, with optional LZ4 compression layered over any of them.
package persist

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/protoforge/pkg/safeconv"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	lz4Extension  = ".lz4"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// lz4HeaderSize is the length of the raw-size/compressed-size prefix
// written before each LZ4 block.
const lz4HeaderSize = 16

// Codec is a serialization format for state files.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json", ".yaml").
	Extension() string
}

// JSONCodec encodes state as JSON. Indent holds the indentation string;
// leave it empty for compact output.
type JSONCodec struct {
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	decoder := json.NewDecoder(r)

	err := decoder.Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using YAML encoding.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, state any) error {
	encoder := yaml.NewEncoder(w)

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml close: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding.
func (c *YAMLCodec) Decode(r io.Reader, state any) error {
	decoder := yaml.NewDecoder(r)

	err := decoder.Decode(state)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// LZ4Codec wraps an inner codec with LZ4 block compression. The encoded
// stream starts with a 16-byte header holding the raw and compressed sizes
// as little-endian uint64; a zero compressed size marks incompressible
// input stored raw.
type LZ4Codec struct {
	inner Codec
}

// NewLZ4Codec creates an LZ4 codec around the given inner codec.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{inner: inner}
}

// Encode implements Codec.Encode by encoding with the inner codec and
// compressing the result as a single LZ4 block.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	var buf bytes.Buffer

	err := c.inner.Encode(&buf, state)
	if err != nil {
		return err
	}

	raw := buf.Bytes()
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	var header [lz4HeaderSize]byte

	binary.LittleEndian.PutUint64(header[:8], uint64(len(raw)))
	binary.LittleEndian.PutUint64(header[8:], uint64(written))

	_, err = w.Write(header[:])
	if err != nil {
		return fmt.Errorf("write lz4 header: %w", err)
	}

	payload := compressed[:written]
	if written == 0 {
		payload = raw
	}

	_, err = w.Write(payload)
	if err != nil {
		return fmt.Errorf("write lz4 payload: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode by decompressing the LZ4 block and decoding
// the result with the inner codec.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	var header [lz4HeaderSize]byte

	_, err := io.ReadFull(r, header[:])
	if err != nil {
		return fmt.Errorf("read lz4 header: %w", err)
	}

	rawLen := binary.LittleEndian.Uint64(header[:8])
	compLen := binary.LittleEndian.Uint64(header[8:])

	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read lz4 payload: %w", err)
	}

	raw := payload

	if compLen != 0 {
		raw = make([]byte, safeconv.ClampUint64ToInt(rawLen))

		_, err = lz4.UncompressBlock(payload, raw)
		if err != nil {
			return fmt.Errorf("lz4 uncompress: %w", err)
		}
	}

	return c.inner.Decode(bytes.NewReader(raw), state)
}

// Extension implements Codec.Extension by appending ".lz4" to the inner
// codec's extension.
func (c *LZ4Codec) Extension() string {
	return c.inner.Extension() + lz4Extension
}

// SaveState writes state to dir under basename plus the codec's extension.
// The payload is encoded fully in memory first, so a failed encode leaves
// no file behind.
func SaveState(dir, basename string, codec Codec, state any) error {
	var buf bytes.Buffer

	err := codec.Encode(&buf, state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	path := filepath.Join(dir, basename+codec.Extension())

	err = os.WriteFile(path, buf.Bytes(), 0o644)
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// LoadState reads state from dir under basename plus the codec's extension.
// The state parameter must be a pointer to the target struct.
func LoadState(dir, basename string, codec Codec, state any) error {
	path := filepath.Join(dir, basename+codec.Extension())

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state %s: %w", filepath.Base(path), err)
	}

	return nil
}
