// Package coord provides the 3D coordinate primitives for the mapping
// pipeline: an immutable integer coordinate type, stride quantization, and a
// reversible 32-bit key codec used for sorting and equality.
package coord

import "fmt"

// Per-axis key layout. Each axis occupies AxisBits bits of the packed key and
// is stored biased by AxisBias, so the representable range for a quantized
// component is [-AxisBias, AxisBias-1]. The biased layout keeps packed keys
// order-consistent with lexicographic (X, Y, Z) comparison of signed
// coordinates.
const (
	AxisBits = 10
	AxisBias = 1 << (AxisBits - 1)
	axisMask = 1<<AxisBits - 1
)

// Coord3D is an immutable 3D integer coordinate.
type Coord3D struct {
	X, Y, Z int32
}

// Add returns the component-wise sum of c and o.
func (c Coord3D) Add(o Coord3D) Coord3D {
	return Coord3D{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Quantize divides each component by stride using integer division that
// truncates toward zero. stride must be positive.
func (c Coord3D) Quantize(stride int32) Coord3D {
	return Coord3D{c.X / stride, c.Y / stride, c.Z / stride}
}

// Key packs the coordinate into a 32-bit sortable key, AxisBits bits per axis
// with X in the high bits. A component outside [-AxisBias, AxisBias-1] is an
// error; components are never silently truncated.
func (c Coord3D) Key() (uint32, error) {
	x, err := packAxis(c.X, "x")
	if err != nil {
		return 0, err
	}
	y, err := packAxis(c.Y, "y")
	if err != nil {
		return 0, err
	}
	z, err := packAxis(c.Z, "z")
	if err != nil {
		return 0, err
	}
	return x<<(2*AxisBits) | y<<AxisBits | z, nil
}

func packAxis(v int32, axis string) (uint32, error) {
	biased := v + AxisBias
	if biased < 0 || biased > axisMask {
		return 0, fmt.Errorf("coordinate %s component %d exceeds %d-bit axis budget", axis, v, AxisBits)
	}
	return uint32(biased), nil
}

// FromKey is the exact inverse of Key.
func FromKey(key uint32) Coord3D {
	return Coord3D{
		X: int32(key>>(2*AxisBits)&axisMask) - AxisBias,
		Y: int32(key>>AxisBits&axisMask) - AxisBias,
		Z: int32(key&axisMask) - AxisBias,
	}
}

// String implements fmt.Stringer.
func (c Coord3D) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Indexed is a coordinate together with the index it held in the original
// pre-deduplication input list. Created once during deduplication or query
// construction and never mutated afterwards.
type Indexed struct {
	Coord   Coord3D
	OrigIdx int
}

// Key packs the underlying coordinate.
func (ic Indexed) Key() (uint32, error) {
	return ic.Coord.Key()
}
