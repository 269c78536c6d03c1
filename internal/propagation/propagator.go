// Package propagation extrapolates charged-particle trajectory states
// through a magnetic field to a target surface.
//
// Integration runs along momentum with a fixed-step fourth order
// Runge-Kutta scheme on (position, unit direction) as a function of path
// length. A sign change of the surface distance between two steps marks
// a crossing, which is then refined inside that step.
package propagation

import (
	"math"

	"github.com/banshee-data/calo-impact/internal/field"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Physical constants
const (
	// BendingConstant converts charge*field/momentum into curvature:
	// GeV/c per (tesla * cm).
	BendingConstant = 0.00299792458
	// SpeedOfLight in cm/ns.
	SpeedOfLight = 29.9792458
	// ElectronMass in GeV/c^2. It is the fixed mass hypothesis used for
	// impact-point propagation, whatever the actual particle.
	ElectronMass = 0.000511
)

// Defaults
const (
	DefaultStep                = 1.0    // cm
	DefaultMaxPath             = 3000.0 // cm
	DefaultCrossingTolerance   = 1e-6   // cm
	DefaultMaxRefineIterations = 50
)

// State is a trajectory state: global position (cm), momentum (GeV/c),
// charge in units of e, and a validity flag.
type State struct {
	Position r3.Vec
	Momentum r3.Vec
	Charge   int
	Valid    bool
}

// Result is the outcome of one propagation attempt. Position, Direction,
// PathLength and TimeOfFlight are only meaningful when Valid is true.
type Result struct {
	Valid        bool
	Position     r3.Vec  // cm
	Direction    r3.Vec  // unit vector along momentum
	PathLength   float64 // cm
	TimeOfFlight float64 // ns, under the mass hypothesis
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithMass overrides the mass hypothesis (GeV/c^2).
func WithMass(m float64) Option {
	return func(p *Propagator) { p.mass = m }
}

// WithStep sets the integration step length (cm). Non-positive values are ignored.
func WithStep(step float64) Option {
	return func(p *Propagator) {
		if step > 0 {
			p.step = step
		}
	}
}

// WithMaxPath sets the path length after which propagation gives up (cm).
// Non-positive values are ignored.
func WithMaxPath(maxPath float64) Option {
	return func(p *Propagator) {
		if maxPath > 0 {
			p.maxPath = maxPath
		}
	}
}

// WithCrossingTolerance sets the distance to the surface at which crossing
// refinement stops (cm). Non-positive values are ignored.
func WithCrossingTolerance(tol float64) Option {
	return func(p *Propagator) {
		if tol > 0 {
			p.tolerance = tol
		}
	}
}

// WithMaxRefineIterations bounds the crossing refinement loop.
// Non-positive values are ignored.
func WithMaxRefineIterations(n int) Option {
	return func(p *Propagator) {
		if n > 0 {
			p.maxRefine = n
		}
	}
}

// Propagator extrapolates states along momentum. It holds no per-call
// state and is safe for concurrent use.
type Propagator struct {
	field     field.Field
	mass      float64
	step      float64
	maxPath   float64
	tolerance float64
	maxRefine int
}

// New returns a propagator for the given field. A nil field propagates
// in straight lines with no volume limit.
func New(f field.Field, opts ...Option) *Propagator {
	p := &Propagator{
		field:     f,
		mass:      ElectronMass,
		step:      DefaultStep,
		maxPath:   DefaultMaxPath,
		tolerance: DefaultCrossingTolerance,
		maxRefine: DefaultMaxRefineIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mass returns the mass hypothesis in GeV/c^2.
func (p *Propagator) Mass() float64 { return p.mass }

// Step returns the integration step length in cm.
func (p *Propagator) Step() float64 { return p.step }

// MaxPath returns the path length limit in cm.
func (p *Propagator) MaxPath() float64 { return p.maxPath }

// point is a position and unit direction along the trajectory.
type point struct {
	pos r3.Vec
	dir r3.Vec
}

// Propagate extrapolates state along momentum until it crosses target.
// The result is invalid if the state is invalid, the momentum is zero, the
// trajectory leaves the field volume or exhausts the path limit first, or
// the crossing lies outside the surface bounds or tolerance band.
func (p *Propagator) Propagate(state State, target geometry.Surface) Result {
	if !state.Valid || target == nil {
		return Result{}
	}
	pmag := r3.Norm(state.Momentum)
	if pmag == 0 || math.IsNaN(pmag) || math.IsInf(pmag, 0) {
		return Result{}
	}
	if !p.inside(state.Position) {
		return Result{}
	}

	// Curvature per unit field: d(dir)/ds = k * dir x B.
	k := float64(state.Charge) * BendingConstant / pmag

	cur := point{pos: state.Position, dir: r3.Unit(state.Momentum)}
	d0 := target.Distance(cur.pos)
	travelled := 0.0

	for travelled < p.maxPath {
		h := math.Min(p.step, p.maxPath-travelled)
		next := p.rk4(cur, k, h)
		d1 := target.Distance(next.pos)

		if crossed(d0, d1) {
			hit, s := next, h
			if d1 != 0 {
				hit, s = p.refine(cur, k, h, d0, d1, target)
			}
			if !geometry.OnSurface(target, hit.pos) {
				return Result{}
			}
			path := travelled + s
			return Result{
				Valid:        true,
				Position:     hit.pos,
				Direction:    hit.dir,
				PathLength:   path,
				TimeOfFlight: p.timeOfFlight(path, pmag),
			}
		}

		if !p.inside(next.pos) {
			return Result{}
		}
		cur, d0 = next, d1
		travelled += h
	}
	return Result{}
}

// crossed reports whether the signed distance changed sign between two
// consecutive points. Starting exactly on the surface is not a crossing.
func crossed(d0, d1 float64) bool {
	return (d0 < 0 && d1 >= 0) || (d0 > 0 && d1 <= 0)
}

func (p *Propagator) inside(pos r3.Vec) bool {
	return p.field == nil || p.field.Inside(pos)
}

// refine locates the crossing inside a step of length h starting at start,
// where the signed distance goes from da to db. It uses regula falsi with
// the Illinois modification, falling back to bisection when the secant
// estimate leaves the bracket.
func (p *Propagator) refine(start point, k, h, da, db float64, target geometry.Surface) (point, float64) {
	a, b := 0.0, h
	best, bestS := start, 0.0
	side := 0

	for i := 0; i < p.maxRefine; i++ {
		s := a - da*(b-a)/(db-da)
		if !(s > a && s < b) {
			s = 0.5 * (a + b)
		}
		pt := p.rk4(start, k, s)
		d := target.Distance(pt.pos)
		best, bestS = pt, s
		if math.Abs(d) <= p.tolerance {
			break
		}

		if (d < 0) == (da < 0) {
			a, da = s, d
			if side == -1 {
				db /= 2
			}
			side = -1
		} else {
			b, db = s, d
			if side == 1 {
				da /= 2
			}
			side = 1
		}
	}
	return best, bestS
}

// rk4 advances x by path length h.
func (p *Propagator) rk4(x point, k, h float64) point {
	half := h / 2

	k1r := x.dir
	k1t := p.bend(x.pos, x.dir, k)

	d2 := r3.Add(x.dir, r3.Scale(half, k1t))
	k2r := d2
	k2t := p.bend(r3.Add(x.pos, r3.Scale(half, k1r)), d2, k)

	d3 := r3.Add(x.dir, r3.Scale(half, k2t))
	k3r := d3
	k3t := p.bend(r3.Add(x.pos, r3.Scale(half, k2r)), d3, k)

	d4 := r3.Add(x.dir, r3.Scale(h, k3t))
	k4r := d4
	k4t := p.bend(r3.Add(x.pos, r3.Scale(h, k3r)), d4, k)

	pos := r3.Add(x.pos, r3.Scale(h/6, sum4(k1r, k2r, k3r, k4r)))
	dir := r3.Add(x.dir, r3.Scale(h/6, sum4(k1t, k2t, k3t, k4t)))
	return point{pos: pos, dir: r3.Unit(dir)}
}

// bend returns d(dir)/ds at pos.
func (p *Propagator) bend(pos, dir r3.Vec, k float64) r3.Vec {
	if k == 0 || p.field == nil {
		return r3.Vec{}
	}
	return r3.Scale(k, r3.Cross(dir, p.field.At(pos)))
}

// sum4 returns a + 2b + 2c + d.
func sum4(a, b, c, d r3.Vec) r3.Vec {
	return r3.Add(r3.Add(a, d), r3.Scale(2, r3.Add(b, c)))
}

// timeOfFlight returns the flight time in ns over path cm for momentum
// pmag under the mass hypothesis.
func (p *Propagator) timeOfFlight(path, pmag float64) float64 {
	energy := math.Hypot(pmag, p.mass)
	beta := pmag / energy
	return path / (beta * SpeedOfLight)
}
