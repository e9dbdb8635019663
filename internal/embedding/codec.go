// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package embedding

import (
	"encoding/binary"
	"math"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Encode packs v as little-endian IEEE 754 float32 values with no length
// prefix; the dimension is derived from the blob size on decode.
func Encode(v Vector) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

// Decode reverses Encode.
func Decode(b []byte) (Vector, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, aterr.Errorf(aterr.CodeEmbeddingEncodingInvalid,
			"embedding: invalid blob length %d (not multiple of 4)", len(b))
	}
	v := make(Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
