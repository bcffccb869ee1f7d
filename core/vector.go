package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes a vector to the persisted byte layout: one 4-byte
// little-endian IEEE-754 float32 per component, concatenated in order, with
// no header or length prefix. This layout is the on-disk contract; the blob
// length divided by 4 must equal the configured embedding dimension.
// Returns ErrDimension if the vector does not have exactly dim components.
func EncodeVector(vec []float32, dim int) ([]byte, error) {
	if len(vec) != dim {
		return nil, fmt.Errorf("%w: got %d components, want %d", ErrDimension, len(vec), dim)
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// DecodeVector is the inverse of EncodeVector. Returns ErrCorruptVector if
// the byte length is not a multiple of 4. Round-trips are exact: decoding an
// encoded vector reproduces it bit for bit.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32s", ErrCorruptVector, len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// CosineSimilarity computes the cosine of the angle between two equal-length
// vectors, in the nominal range [-1, 1]. It divides by the product of the
// actual norms and does not assume the inputs are normalized. Accumulation is
// done in float64 so unit-norm float32 inputs stay numerically stable.
// Returns ErrDimensionMismatch for different lengths and ErrZeroVector when
// either input has zero norm.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
