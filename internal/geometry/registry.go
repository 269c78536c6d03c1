package geometry

import "sync"

// Front-face positions of the electromagnetic calorimeter crystals.
const (
	BarrelRadius     = 129.0 // cm
	BarrelHalfLength = 270.9 // cm
	EndcapRadius     = 171.1 // cm
	EndcapZ          = 320.5 // cm

	// SurfaceTolerance is the thickness of the band around each nominal
	// surface that makes intersection tests well defined.
	SurfaceTolerance = 0.001 // cm
)

// Surface labels.
const (
	BarrelName         = "barrel"
	PositiveEndcapName = "endcap+"
	NegativeEndcapName = "endcap-"
)

// Registry holds the three calorimeter surfaces. It is immutable after
// NewRegistry returns.
type Registry struct {
	barrel   *Cylinder
	positive *Disk
	negative *Disk
}

// NewRegistry builds the barrel and endcap surfaces from the detector
// constants.
func NewRegistry() *Registry {
	return &Registry{
		barrel: &Cylinder{
			Label:      BarrelName,
			Radius:     BarrelRadius,
			HalfLength: BarrelHalfLength,
			Tol:        SurfaceTolerance,
		},
		positive: &Disk{
			Label:       PositiveEndcapName,
			Z:           EndcapZ,
			OuterRadius: EndcapRadius,
			Tol:         SurfaceTolerance,
		},
		negative: &Disk{
			Label:       NegativeEndcapName,
			Z:           -EndcapZ,
			OuterRadius: EndcapRadius,
			Tol:         SurfaceTolerance,
		},
	}
}

// DefaultRegistry returns the process-wide registry, built on first use.
var DefaultRegistry = sync.OnceValue(NewRegistry)

// Barrel returns the barrel cylinder.
func (r *Registry) Barrel() *Cylinder { return r.barrel }

// PositiveEtaEndcap returns the endcap disk at +EndcapZ.
func (r *Registry) PositiveEtaEndcap() *Disk { return r.positive }

// NegativeEtaEndcap returns the endcap disk at -EndcapZ.
func (r *Registry) NegativeEtaEndcap() *Disk { return r.negative }

// Surfaces returns all three surfaces in barrel, positive, negative order.
func (r *Registry) Surfaces() []Surface {
	return []Surface{r.barrel, r.positive, r.negative}
}
