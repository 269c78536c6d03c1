// Package impact resolves where tracks reach the electromagnetic
// calorimeter and which cluster each impact point is closest to.
//
// For each track the barrel is tried first. The barrel result is kept if
// it is valid and within the barrel acceptance (|eta| <= 1.479 by default);
// otherwise the endcap on the side of the track's innermost position is
// tried. Failed tracks keep their slot in the output with a zero position.
package impact

import (
	"context"
	"math"
	"runtime"

	"github.com/banshee-data/calo-impact/internal/clustermatch"
	"github.com/banshee-data/calo-impact/internal/field"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/monitoring"
	"github.com/banshee-data/calo-impact/internal/propagation"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultBarrelEtaMax is the barrel/endcap transition of the calorimeter.
const DefaultBarrelEtaMax = 1.479

// Propagator extrapolates a state to a surface.
type Propagator interface {
	Propagate(state propagation.State, target geometry.Surface) propagation.Result
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGeometry overrides the surface registry.
func WithGeometry(reg *geometry.Registry) Option {
	return func(r *Resolver) {
		if reg != nil {
			r.geometry = reg
		}
	}
}

// WithBarrelEtaMax overrides the barrel acceptance limit.
func WithBarrelEtaMax(etaMax float64) Option {
	return func(r *Resolver) { r.barrelEtaMax = etaMax }
}

// WithPropagationOptions configures the propagator built by NewResolver.
func WithPropagationOptions(opts ...propagation.Option) Option {
	return func(r *Resolver) { r.propOpts = append(r.propOpts, opts...) }
}

// WithPropagator replaces the field propagator.
func WithPropagator(p Propagator) Option {
	return func(r *Resolver) {
		if p != nil {
			r.propagator = p
		}
	}
}

// Resolver finds calorimeter impact points and matching clusters. It owns
// its propagator and keeps no per-call state, so one Resolver can serve
// concurrent callers.
type Resolver struct {
	geometry     *geometry.Registry
	propagator   Propagator
	barrelEtaMax float64

	propOpts []propagation.Option // consumed by NewResolver
}

// NewResolver returns a resolver propagating through f. Unless
// WithPropagator is given, it builds its own propagation.Propagator.
func NewResolver(f field.Field, opts ...Option) *Resolver {
	r := &Resolver{
		geometry:     geometry.DefaultRegistry(),
		barrelEtaMax: DefaultBarrelEtaMax,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.propagator == nil {
		r.propagator = propagation.New(f, r.propOpts...)
	}
	r.propOpts = nil
	return r
}

// Geometry returns the surfaces used by the resolver.
func (r *Resolver) Geometry() *geometry.Registry { return r.geometry }

// BarrelEtaMax returns the barrel acceptance limit.
func (r *Resolver) BarrelEtaMax() float64 { return r.barrelEtaMax }

// Find resolves every track in order. A nil collection is treated as empty.
func (r *Resolver) Find(tracks []Track, clusters clustermatch.Collection) Output {
	out := newOutput(len(tracks))
	for i, t := range tracks {
		out.Positions[i], out.Regions[i], out.Matches[i] = r.resolve(t, clusters)
	}
	r.logSummary(out)
	return out
}

// FindConcurrent resolves tracks on up to workers goroutines and returns the
// same Output as Find. workers < 1 uses GOMAXPROCS. It returns the context
// error if ctx is cancelled before all tracks are resolved.
func (r *Resolver) FindConcurrent(ctx context.Context, tracks []Track, clusters clustermatch.Collection, workers int) (Output, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := newOutput(len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tracks {
		if gctx.Err() != nil {
			break
		}
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.Positions[i], out.Regions[i], out.Matches[i] = r.resolve(t, clusters)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	r.logSummary(out)
	return out, nil
}

// resolve runs the barrel-then-endcap decision for one track.
func (r *Resolver) resolve(t Track, clusters clustermatch.Collection) (r3.Vec, Region, clustermatch.Match) {
	if t == nil {
		return r3.Vec{}, RegionNone, clustermatch.Unmatched()
	}
	state := t.InnermostState()
	if !state.Valid {
		return r3.Vec{}, RegionNone, clustermatch.Unmatched()
	}

	region := RegionBarrel
	res := r.propagator.Propagate(state, r.geometry.Barrel())
	if !res.Valid || !r.inBarrelAcceptance(geometry.Eta(res.Position)) {
		// The endcap side follows the innermost position, not the
		// discarded barrel attempt.
		if geometry.Eta(state.Position) > 0 {
			region = RegionPositiveEndcap
			res = r.propagator.Propagate(state, r.geometry.PositiveEtaEndcap())
		} else {
			region = RegionNegativeEndcap
			res = r.propagator.Propagate(state, r.geometry.NegativeEtaEndcap())
		}
	}

	if !res.Valid {
		return r3.Vec{}, RegionNone, clustermatch.Unmatched()
	}
	return res.Position, region, clustermatch.Nearest(res.Position, clusters)
}

// inBarrelAcceptance reports whether |eta| is within the barrel limit,
// boundary included.
func (r *Resolver) inBarrelAcceptance(eta float64) bool {
	return math.Abs(eta) <= r.barrelEtaMax
}

func (r *Resolver) logSummary(out Output) {
	barrel, endcap, failed := out.Counts()
	monitoring.Debugf("[impact] resolved %d tracks: barrel=%d endcap=%d failed=%d", out.Len(), barrel, endcap, failed)
}
