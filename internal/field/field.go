// Package field provides magnetic field providers for trajectory
// propagation. Positions are in centimetres and field values in tesla.
package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Field is queried by the propagator at arbitrary points. Implementations
// must be safe for concurrent reads.
type Field interface {
	// At returns the field vector at p.
	At(p r3.Vec) r3.Vec

	// Inside reports whether p is within the region where the field is
	// defined. Propagation gives up once a trajectory leaves it.
	Inside(p r3.Vec) bool
}

// Uniform is a constant field inside a cylindrical volume coaxial with the
// beam line. A zero Radius or HalfLength leaves that dimension unbounded.
type Uniform struct {
	B          r3.Vec
	Radius     float64 // cm
	HalfLength float64 // cm
}

// NewSolenoid returns a uniform field along z bounded by the given volume.
func NewSolenoid(bz, radius, halfLength float64) Uniform {
	return Uniform{B: r3.Vec{Z: bz}, Radius: radius, HalfLength: halfLength}
}

// At returns the constant field vector.
func (u Uniform) At(r3.Vec) r3.Vec { return u.B }

// Inside reports whether p is within the bounding volume.
func (u Uniform) Inside(p r3.Vec) bool {
	if u.Radius > 0 && math.Hypot(p.X, p.Y) > u.Radius {
		return false
	}
	if u.HalfLength > 0 && math.Abs(p.Z) > u.HalfLength {
		return false
	}
	return true
}

var _ Field = Uniform{}
