package impact

import (
	"github.com/banshee-data/calo-impact/internal/clustermatch"
	"github.com/banshee-data/calo-impact/internal/propagation"
	"gonum.org/v1/gonum/spatial/r3"
)

// TrajectoryState is the innermost measured state of a track.
type TrajectoryState = propagation.State

// Track is anything exposing an innermost trajectory state.
type Track interface {
	InnermostState() TrajectoryState
}

// TrackRecord is a plain Track value.
type TrackRecord struct {
	ID    string
	State TrajectoryState
}

// InnermostState returns the stored state.
func (t TrackRecord) InnermostState() TrajectoryState { return t.State }

var _ Track = TrackRecord{}

// Region identifies which calorimeter surface produced an impact point.
type Region string

const (
	RegionNone           Region = "none"
	RegionBarrel         Region = "barrel"
	RegionPositiveEndcap Region = "endcap+"
	RegionNegativeEndcap Region = "endcap-"
)

// IsEndcap reports whether the region is one of the endcaps.
func (r Region) IsEndcap() bool {
	return r == RegionPositiveEndcap || r == RegionNegativeEndcap
}

// Output holds one entry per input track, in input order. A failed track
// has the zero position, RegionNone and an unmatched Match.
type Output struct {
	Positions []r3.Vec
	Regions   []Region
	Matches   []clustermatch.Match
}

func newOutput(n int) Output {
	return Output{
		Positions: make([]r3.Vec, n),
		Regions:   make([]Region, n),
		Matches:   make([]clustermatch.Match, n),
	}
}

// Len returns the number of tracks covered.
func (o Output) Len() int { return len(o.Positions) }

// Valid reports whether track i produced an impact point.
func (o Output) Valid(i int) bool { return o.Regions[i] != RegionNone }

// Counts returns the number of tracks resolved on the barrel, on either
// endcap, and not at all.
func (o Output) Counts() (barrel, endcap, failed int) {
	for _, r := range o.Regions {
		switch {
		case r == RegionBarrel:
			barrel++
		case r.IsEndcap():
			endcap++
		default:
			failed++
		}
	}
	return barrel, endcap, failed
}
