package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a bounded target surface for propagation.
type Surface interface {
	// Name identifies the surface in logs and reports.
	Name() string

	// Distance returns the signed distance of p from the nominal surface
	// along its normal coordinate (radial for a cylinder, z for a disk).
	// The sign flips when a trajectory crosses the surface.
	Distance(p r3.Vec) float64

	// InBounds reports whether p lies within the surface's finite extent,
	// ignoring the normal coordinate.
	InBounds(p r3.Vec) bool

	// Tolerance is the half-thickness of the band around the nominal
	// surface in which a point counts as lying on it.
	Tolerance() float64
}

// OnSurface reports whether p lies within the tolerance band and bounds of s.
func OnSurface(s Surface, p r3.Vec) bool {
	return math.Abs(s.Distance(p)) <= s.Tolerance() && s.InBounds(p)
}

// Cylinder is a cylinder coaxial with the beam line, centred at the origin.
type Cylinder struct {
	Label      string
	Radius     float64 // cm
	HalfLength float64 // cm
	Tol        float64 // radial tolerance, cm
}

// Name returns the cylinder label.
func (c *Cylinder) Name() string { return c.Label }

// Distance returns rho - Radius.
func (c *Cylinder) Distance(p r3.Vec) float64 {
	return math.Hypot(p.X, p.Y) - c.Radius
}

// InBounds reports whether |z| <= HalfLength.
func (c *Cylinder) InBounds(p r3.Vec) bool {
	return math.Abs(p.Z) <= c.HalfLength
}

// Tolerance returns the radial tolerance.
func (c *Cylinder) Tolerance() float64 { return c.Tol }

// Disk is a plane perpendicular to the beam line at fixed z, bounded by an
// outer radius.
type Disk struct {
	Label       string
	Z           float64 // cm
	OuterRadius float64 // cm
	Tol         float64 // tolerance in z, cm
}

// Name returns the disk label.
func (d *Disk) Name() string { return d.Label }

// Distance returns z - Z.
func (d *Disk) Distance(p r3.Vec) float64 {
	return p.Z - d.Z
}

// InBounds reports whether the transverse radius is within OuterRadius.
func (d *Disk) InBounds(p r3.Vec) bool {
	return math.Hypot(p.X, p.Y) <= d.OuterRadius
}

// Tolerance returns the tolerance in z.
func (d *Disk) Tolerance() float64 { return d.Tol }

// Verify at compile time that both primitives implement Surface.
var (
	_ Surface = (*Cylinder)(nil)
	_ Surface = (*Disk)(nil)
)
