// Package geometry owns the calorimeter front-face surfaces.
//
// Responsibilities: the barrel cylinder and the two endcap disks on which
// crystal front faces lie, signed-distance and bounds tests used by the
// propagator, and eta/phi of global positions.
// Key types: Surface, Cylinder, Disk, Registry.
//
// Surfaces are immutable after construction and safe for concurrent use.
package geometry
