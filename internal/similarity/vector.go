package similarity

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pack serializes a float32 vector into a contiguous little-endian
// IEEE-754 single-precision buffer, 4 bytes per element. An empty vector
// packs to an empty buffer.
func Pack(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// Unpack deserializes a buffer produced by Pack. Buffers whose length is
// not a multiple of 4 are rejected; an empty buffer unpacks to an empty
// vector.
func Unpack(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding buffer length %d is not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
