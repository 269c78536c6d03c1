package field

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/calo-impact/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrIncompleteGrid is returned when a field map does not cover every
// (r, z) node of its grid.
var ErrIncompleteGrid = errors.New("field map grid is incomplete")

// RZMap is an axially symmetric field map sampled on an (r, z) grid and
// interpolated bilinearly. Axes need not be uniformly spaced.
type RZMap struct {
	rs, zs []float64 // ascending node coordinates, cm
	br, bz []float64 // node values, tesla, index iz*len(rs)+ir
}

// NewRZMap builds a map from node coordinates and row-major (z outer, r
// inner) field components.
func NewRZMap(rs, zs, br, bz []float64) (*RZMap, error) {
	if len(rs) < 2 || len(zs) < 2 {
		return nil, fmt.Errorf("field map needs at least 2 nodes per axis, got %d x %d", len(rs), len(zs))
	}
	if !sort.Float64sAreSorted(rs) || !sort.Float64sAreSorted(zs) {
		return nil, fmt.Errorf("field map axes must be ascending")
	}
	n := len(rs) * len(zs)
	if len(br) != n || len(bz) != n {
		return nil, fmt.Errorf("field map expects %d values per component, got br=%d bz=%d", n, len(br), len(bz))
	}
	return &RZMap{rs: rs, zs: zs, br: br, bz: bz}, nil
}

// Inside reports whether p falls within the grid extent.
func (m *RZMap) Inside(p r3.Vec) bool {
	r := math.Hypot(p.X, p.Y)
	return r >= m.rs[0] && r <= m.rs[len(m.rs)-1] &&
		p.Z >= m.zs[0] && p.Z <= m.zs[len(m.zs)-1]
}

// At interpolates the field at p. Points outside the grid take the value
// at the nearest edge.
func (m *RZMap) At(p r3.Vec) r3.Vec {
	r := math.Hypot(p.X, p.Y)
	ir, fr := bracket(m.rs, r)
	iz, fz := bracket(m.zs, p.Z)

	nr := len(m.rs)
	i00 := iz*nr + ir
	i01 := iz*nr + ir + 1
	i10 := (iz+1)*nr + ir
	i11 := (iz+1)*nr + ir + 1

	br := lerp2(m.br[i00], m.br[i01], m.br[i10], m.br[i11], fr, fz)
	bz := lerp2(m.bz[i00], m.bz[i01], m.bz[i10], m.bz[i11], fr, fz)

	if r == 0 {
		return r3.Vec{Z: bz}
	}
	return r3.Vec{X: br * p.X / r, Y: br * p.Y / r, Z: bz}
}

// bracket returns the lower node index and the fractional offset of v
// within [axis[i], axis[i+1]], clamped to the axis.
func bracket(axis []float64, v float64) (int, float64) {
	last := len(axis) - 1
	if v <= axis[0] {
		return 0, 0
	}
	if v >= axis[last] {
		return last - 1, 1
	}
	i := sort.SearchFloat64s(axis, v)
	// SearchFloat64s returns the first index with axis[i] >= v.
	i--
	return i, (v - axis[i]) / (axis[i+1] - axis[i])
}

func lerp2(v00, v01, v10, v11, fr, fz float64) float64 {
	lo := v00 + (v01-v00)*fr
	hi := v10 + (v11-v10)*fr
	return lo + (hi-lo)*fz
}

// LoadRZMapCSV reads a field map from CSV records "r,z,br,bz". Lines
// starting with '#' are comments and an optional header row is skipped.
// Lengths are converted from lengthUnit to cm and field values from
// fieldUnit to tesla.
func LoadRZMapCSV(r io.Reader, lengthUnit, fieldUnit string) (*RZMap, error) {
	if !units.IsValidLength(lengthUnit) {
		return nil, fmt.Errorf("unsupported length unit %q (valid: %s)", lengthUnit, units.ValidLengthString())
	}
	if !units.IsValidField(fieldUnit) {
		return nil, fmt.Errorf("unsupported field unit %q (valid: %s)", fieldUnit, units.ValidFieldString())
	}

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	type node struct{ r, z, br, bz float64 }
	var nodes []node
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read field map: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "r") {
			continue
		}

		var vals [4]float64
		for i, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("field map record %d column %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		nodes = append(nodes, node{
			r:  units.LengthToCM(vals[0], lengthUnit),
			z:  units.LengthToCM(vals[1], lengthUnit),
			br: units.FieldToTesla(vals[2], fieldUnit),
			bz: units.FieldToTesla(vals[3], fieldUnit),
		})
	}

	rs := uniqueSorted(nodes, func(n node) float64 { return n.r })
	zs := uniqueSorted(nodes, func(n node) float64 { return n.z })
	if len(nodes) != len(rs)*len(zs) {
		return nil, fmt.Errorf("%w: %d records for a %d x %d grid", ErrIncompleteGrid, len(nodes), len(rs), len(zs))
	}

	rIndex := indexOf(rs)
	zIndex := indexOf(zs)
	br := make([]float64, len(nodes))
	bz := make([]float64, len(nodes))
	seen := make([]bool, len(nodes))
	for _, n := range nodes {
		idx := zIndex[n.z]*len(rs) + rIndex[n.r]
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate node r=%g z=%g", ErrIncompleteGrid, n.r, n.z)
		}
		seen[idx] = true
		br[idx] = n.br
		bz[idx] = n.bz
	}

	return NewRZMap(rs, zs, br, bz)
}

func uniqueSorted[T any](items []T, key func(T) float64) []float64 {
	set := make(map[float64]struct{}, len(items))
	for _, it := range items {
		set[key(it)] = struct{}{}
	}
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func indexOf(axis []float64) map[float64]int {
	m := make(map[float64]int, len(axis))
	for i, v := range axis {
		m[v] = i
	}
	return m
}

var _ Field = (*RZMap)(nil)
