// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package embedding

import (
	"math"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// DefaultDimension is the embedding size produced by the on-device encoders.
const DefaultDimension = 512

// Vector is an ordered sequence of float32 components.
type Vector []float32

// New copies values into a fresh Vector.
func New(values ...float32) Vector {
	return Vector(values).Clone()
}

// Zero returns a zero-valued vector of the given dimension.
func Zero(dim int) Vector {
	return make(Vector, dim)
}

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v) }

// Clone returns a deep copy. A nil vector clones to nil.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and other have identical components.
func (v Vector) Equal(other Vector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if math.Float32bits(v[i]) != math.Float32bits(other[i]) {
			return false
		}
	}
	return true
}

// Magnitude returns the Euclidean (L2) norm.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(dot(v, v))
}

// Normalize returns a unit-length copy of v. A zero vector normalizes to a
// zero vector of the same dimension.
func (v Vector) Normalize() Vector {
	out := v.Clone()
	mag := v.Magnitude()
	if mag == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / mag)
	}
	return out
}

// Validate checks that v has exactly dim components and that all of them are
// finite.
func (v Vector) Validate(dim int) error {
	if len(v) != dim {
		return aterr.New(aterr.CodeEmbeddingDimensionMismatch,
			"embedding: dimension mismatch", aterr.FieldDimension(dim, len(v)))
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return aterr.New(aterr.CodeEmbeddingValueInvalid,
				"embedding: non-finite component", aterr.Field("index", i))
		}
	}
	return nil
}

// CosineSimilarity compares v against other. See CosineSimilarity.
func (v Vector) CosineSimilarity(other Vector) (float64, error) {
	return CosineSimilarity(v, other)
}

// CosineSimilarity returns the dot product of the magnitude-normalized
// vectors. It fails when the dimensions differ and returns exactly 0 when
// either vector has zero magnitude.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, aterr.New(aterr.CodeEmbeddingDimensionMismatch,
			"embedding: cosine similarity dimension mismatch", aterr.FieldDimension(len(a), len(b)))
	}
	return cosine(a, b), nil
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, aterr.New(aterr.CodeEmbeddingDimensionMismatch,
			"embedding: L2 distance dimension mismatch", aterr.FieldDimension(len(a), len(b)))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// cosine assumes equal lengths.
func cosine(a, b Vector) float64 {
	var d, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		d += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	s := d / (math.Sqrt(na2) * math.Sqrt(nb2))
	if math.IsNaN(s) {
		return 0
	}
	// Rounding can push parallel vectors a hair past the unit interval.
	return math.Max(-1, math.Min(1, s))
}

func dot(a, b Vector) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
