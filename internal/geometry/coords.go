package geometry

import (
	"math"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Eta returns the pseudorapidity of the direction from the origin to p.
// Points on the beam line return +Inf or -Inf; the origin returns 0.
func Eta(p r3.Vec) float64 {
	if p.X == 0 && p.Y == 0 {
		switch {
		case p.Z > 0:
			return math.Inf(1)
		case p.Z < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	v := asFourVector(p)
	return v.Eta()
}

// Phi returns the azimuth of p in (-pi, pi].
func Phi(p r3.Vec) float64 {
	if p.X == 0 && p.Y == 0 {
		return 0
	}
	v := asFourVector(p)
	return v.Phi()
}

// EtaPhi returns both Eta(p) and Phi(p).
func EtaPhi(p r3.Vec) (eta, phi float64) {
	return Eta(p), Phi(p)
}

// FromEtaPhi returns the point at transverse radius rho with the given
// pseudorapidity and azimuth.
func FromEtaPhi(eta, phi, rho float64) r3.Vec {
	return r3.Vec{
		X: rho * math.Cos(phi),
		Y: rho * math.Sin(phi),
		Z: rho * math.Sinh(eta),
	}
}

// asFourVector treats a position as a massless four-vector so the fmom
// angular accessors apply.
func asFourVector(p r3.Vec) fmom.PxPyPzE {
	return fmom.NewPxPyPzE(p.X, p.Y, p.Z, r3.Norm(p))
}
