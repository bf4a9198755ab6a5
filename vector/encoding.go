package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDimension is returned when a vector or BLOB does not match the
// configured dimension.
var ErrDimension = errors.New("vector: dimension mismatch")

// Codec encodes embeddings of a fixed dimension into BLOBs suitable for
// storage in SQLite. The encoding is a little-endian sequence of IEEE 754
// float32 values without a length prefix; the BLOB is always Dimension*4
// bytes long. The format is part of the on-disk contract used by
// rehydration and must not change.
type Codec struct {
	Dimension int
}

// NewCodec returns a codec for the given dimension.
func NewCodec(dimension int) (*Codec, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector: invalid dimension %d", dimension)
	}
	return &Codec{Dimension: dimension}, nil
}

// Encode serializes vec. It fails when len(vec) differs from the dimension.
func (c *Codec) Encode(vec []float32) ([]byte, error) {
	if len(vec) != c.Dimension {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimension, len(vec), c.Dimension)
	}
	return EncodeEmbedding(vec), nil
}

// Decode reconstructs a vector produced by Encode. It fails when the BLOB
// length is not Dimension*4.
func (c *Codec) Decode(b []byte) ([]float32, error) {
	if len(b) != c.Dimension*4 {
		return nil, fmt.Errorf("%w: blob length %d, want %d", ErrDimension, len(b), c.Dimension*4)
	}
	return DecodeEmbedding(b)
}

// EncodeEmbedding encodes a slice of float32 values without a dimension check.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding back into a
// slice of float32 values.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: invalid embedding blob length %d (not multiple of 4)", ErrDimension, len(b))
	}
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
