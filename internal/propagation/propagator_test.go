package propagation

import (
	"math"
	"sync"
	"testing"

	"github.com/banshee-data/calo-impact/internal/field"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const bz = 3.8 // tesla

// helixAt returns the analytic position after path length s for a track
// starting at the origin with momentum (pt, 0, pz) in a uniform field bz
// along z.
func helixAt(pt, pz float64, charge int, s float64) r3.Vec {
	p := math.Hypot(pt, pz)
	sinTheta := pt / p
	cosTheta := pz / p
	omega := float64(charge) * BendingConstant * bz / p
	return r3.Vec{
		X: sinTheta / omega * math.Sin(omega*s),
		Y: sinTheta / omega * (math.Cos(omega*s) - 1),
		Z: cosTheta * s,
	}
}

func TestPropagate_HelixToBarrel(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	prop := New(field.Uniform{B: r3.Vec{Z: bz}})

	const pt, pz = 5.0, 2.0
	for _, charge := range []int{1, -1} {
		state := State{Momentum: r3.Vec{X: pt, Z: pz}, Charge: charge, Valid: true}
		res := prop.Propagate(state, reg.Barrel())
		require.True(t, res.Valid, "charge %d", charge)

		// Transverse chord 2*Rc*sin(omega*s/2) reaches the barrel radius.
		p := math.Hypot(pt, pz)
		rc := pt / (BendingConstant * bz)
		omega := BendingConstant * bz / p
		s := 2 / omega * math.Asin(geometry.BarrelRadius/(2*rc))

		want := helixAt(pt, pz, charge, s)
		testutil.AssertVecNear(t, res.Position, want, geometry.SurfaceTolerance)
		assert.InDelta(t, geometry.BarrelRadius, math.Hypot(res.Position.X, res.Position.Y), geometry.SurfaceTolerance)
		assert.InDelta(t, s, res.PathLength, geometry.SurfaceTolerance)

		beta := p / math.Hypot(p, ElectronMass)
		assert.InDelta(t, s/(beta*SpeedOfLight), res.TimeOfFlight, 1e-4)
		assert.InDelta(t, 1.0, r3.Norm(res.Direction), 1e-9)
	}
}

func TestPropagate_HelixToEndcap(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	prop := New(field.NewSolenoid(bz, 300, 600))

	const pt, pz = 1.0, 10.0
	state := State{Momentum: r3.Vec{X: pt, Z: pz}, Charge: -1, Valid: true}
	res := prop.Propagate(state, reg.PositiveEtaEndcap())
	require.True(t, res.Valid)

	cosTheta := pz / math.Hypot(pt, pz)
	s := geometry.EndcapZ / cosTheta
	want := helixAt(pt, pz, -1, s)
	testutil.AssertVecNear(t, res.Position, want, geometry.SurfaceTolerance)
	assert.Less(t, math.Hypot(res.Position.X, res.Position.Y), geometry.EndcapRadius)
	assert.Greater(t, res.Position.Y, 0.0, "negative charge bends towards +y")
}

func TestPropagate_StraightLines(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()

	tests := []struct {
		name   string
		field  field.Field
		state  State
		target geometry.Surface
		want   r3.Vec
	}{
		{
			name:   "positive endcap from offset origin",
			field:  nil,
			state:  State{Position: r3.Vec{X: 1, Y: 2, Z: 3}, Momentum: r3.Vec{X: 0.3, Y: 0.1, Z: 1.0}, Charge: 1, Valid: true},
			target: reg.PositiveEtaEndcap(),
			want:   r3.Vec{X: 96.25, Y: 33.75, Z: 320.5},
		},
		{
			name:   "negative endcap neutral track",
			field:  field.NewSolenoid(bz, 300, 600),
			state:  State{Momentum: r3.Vec{X: 0.2, Z: -1}, Charge: 0, Valid: true},
			target: reg.NegativeEtaEndcap(),
			want:   r3.Vec{X: 64.1, Z: -320.5},
		},
		{
			name:   "barrel in zero field",
			field:  field.Uniform{},
			state:  State{Momentum: r3.Vec{X: 1, Y: 1, Z: 0.5}, Charge: -1, Valid: true},
			target: reg.Barrel(),
			want:   r3.Vec{X: 129 / math.Sqrt2, Y: 129 / math.Sqrt2, Z: 0.5 * 129 / math.Sqrt2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.field).Propagate(tt.state, tt.target)
			require.True(t, res.Valid)
			testutil.AssertVecNear(t, res.Position, tt.want, 1e-5)
			assert.True(t, geometry.OnSurface(tt.target, res.Position))
		})
	}
}

func TestPropagate_Misses(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	solenoid := field.NewSolenoid(bz, 300, 600)

	tests := []struct {
		name   string
		field  field.Field
		state  State
		target geometry.Surface
	}{
		{
			name:   "invalid state",
			field:  solenoid,
			state:  State{Momentum: r3.Vec{X: 5}, Charge: 1, Valid: false},
			target: reg.Barrel(),
		},
		{
			name:   "zero momentum",
			field:  solenoid,
			state:  State{Charge: 1, Valid: true},
			target: reg.Barrel(),
		},
		{
			name:   "barrel crossing beyond half length",
			field:  nil,
			state:  State{Momentum: r3.Vec{X: 0.1, Z: 1}, Valid: true},
			target: reg.Barrel(),
		},
		{
			name:   "disk crossing beyond outer radius",
			field:  nil,
			state:  State{Momentum: r3.Vec{X: 1, Z: 1}, Valid: true},
			target: reg.PositiveEtaEndcap(),
		},
		{
			name:   "moving away from disk",
			field:  solenoid,
			state:  State{Momentum: r3.Vec{X: 0.1, Z: -1}, Charge: 1, Valid: true},
			target: reg.PositiveEtaEndcap(),
		},
		{
			name:   "looper never reaches barrel",
			field:  field.Uniform{B: r3.Vec{Z: bz}},
			state:  State{Momentum: r3.Vec{X: 0.5, Z: 0.01}, Charge: 1, Valid: true},
			target: reg.Barrel(),
		},
		{
			name:   "leaves field volume first",
			field:  field.NewSolenoid(bz, 100, 600),
			state:  State{Momentum: r3.Vec{X: 5}, Charge: 1, Valid: true},
			target: reg.Barrel(),
		},
		{
			name:   "starts outside field volume",
			field:  field.NewSolenoid(bz, 100, 600),
			state:  State{Position: r3.Vec{X: 110}, Momentum: r3.Vec{X: 5}, Charge: 1, Valid: true},
			target: reg.Barrel(),
		},
		{
			name:   "nil target",
			field:  solenoid,
			state:  State{Momentum: r3.Vec{X: 5}, Charge: 1, Valid: true},
			target: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.field).Propagate(tt.state, tt.target)
			assert.False(t, res.Valid)
			assert.Equal(t, r3.Vec{}, res.Position)
		})
	}
}

func TestPropagate_StepSizeIndependent(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	state := State{Momentum: r3.Vec{X: 3, Y: -1, Z: 1.5}, Charge: 1, Valid: true}
	f := field.Uniform{B: r3.Vec{Z: bz}}

	fine := New(f, WithStep(0.5)).Propagate(state, reg.Barrel())
	coarse := New(f, WithStep(5)).Propagate(state, reg.Barrel())
	require.True(t, fine.Valid)
	require.True(t, coarse.Valid)
	testutil.AssertVecNear(t, coarse.Position, fine.Position, geometry.SurfaceTolerance)
}

func TestPropagate_ConcurrentCallsAgree(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	prop := New(field.NewSolenoid(bz, 300, 600))
	state := State{Momentum: r3.Vec{X: 2, Y: 2, Z: 1}, Charge: -1, Valid: true}
	want := prop.Propagate(state, reg.Barrel())
	require.True(t, want.Valid)

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = prop.Propagate(state, reg.Barrel())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	p := New(nil)
	assert.Equal(t, ElectronMass, p.Mass())
	assert.Equal(t, DefaultStep, p.Step())
	assert.Equal(t, DefaultMaxPath, p.MaxPath())

	p = New(nil, WithMass(0.105658), WithStep(2), WithMaxPath(500), WithCrossingTolerance(1e-5), WithMaxRefineIterations(10))
	assert.Equal(t, 0.105658, p.Mass())
	assert.Equal(t, 2.0, p.Step())
	assert.Equal(t, 500.0, p.MaxPath())
	assert.Equal(t, 1e-5, p.tolerance)
	assert.Equal(t, 10, p.maxRefine)

	p = New(nil, WithStep(-1), WithMaxPath(0), WithCrossingTolerance(0), WithMaxRefineIterations(-3))
	assert.Equal(t, DefaultStep, p.Step())
	assert.Equal(t, DefaultMaxPath, p.MaxPath())
	assert.Equal(t, DefaultCrossingTolerance, p.tolerance)
	assert.Equal(t, DefaultMaxRefineIterations, p.maxRefine)
}

func TestPropagate_MaxPathLimit(t *testing.T) {
	t.Parallel()

	reg := geometry.NewRegistry()
	state := State{Momentum: r3.Vec{X: 1}, Valid: true}

	assert.False(t, New(nil, WithMaxPath(100)).Propagate(state, reg.Barrel()).Valid)
	res := New(nil, WithMaxPath(200)).Propagate(state, reg.Barrel())
	require.True(t, res.Valid)
	assert.InDelta(t, 129.0, res.PathLength, 1e-6)
}
