// Package clustermatch associates calorimeter impact points with the
// nearest reconstructed cluster in (eta, phi).
//
// The azimuthal difference is a plain linear difference with no wrap at
// +-pi, so points either side of the discontinuity look far apart. This
// reproduces the established association behaviour and is a known
// limitation near phi = +-pi.
package clustermatch

import (
	"math"

	"github.com/banshee-data/calo-impact/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// CaloCluster is a reconstructed calorimeter cluster. Only its position is
// read.
type CaloCluster interface {
	Position() r3.Vec
}

// Collection is an indexable, caller-owned set of clusters.
type Collection interface {
	Len() int
	At(i int) CaloCluster
}

// Cluster is a plain cluster value.
type Cluster struct {
	Pos    r3.Vec  // cm
	Energy float64 // GeV
}

// Position returns the cluster position.
func (c Cluster) Position() r3.Vec { return c.Pos }

// AtEtaPhi returns a cluster placed at the given eta and phi on a cylinder of
// transverse radius rho.
func AtEtaPhi(eta, phi, rho, energy float64) Cluster {
	return Cluster{Pos: geometry.FromEtaPhi(eta, phi, rho), Energy: energy}
}

// Clusters is a slice-backed Collection.
type Clusters []Cluster

// Len returns the number of clusters.
func (cs Clusters) Len() int { return len(cs) }

// At returns a reference to cluster i in the backing slice.
func (cs Clusters) At(i int) CaloCluster { return &cs[i] }

var _ Collection = Clusters(nil)

// NoMatch is the index recorded when there is nothing to match.
const NoMatch = -1

// Match refers to a cluster by its index in the caller's collection.
type Match struct {
	Index    int     // NoMatch when there is no cluster
	Distance float64 // eta-phi distance to the matched cluster
}

// Unmatched returns the empty match.
func Unmatched() Match {
	return Match{Index: NoMatch, Distance: math.Inf(1)}
}

// Found reports whether the match refers to a cluster.
func (m Match) Found() bool { return m.Index != NoMatch }

// Cluster resolves the match against the collection it was computed from.
// It returns nil when there is no match.
func (m Match) Cluster(clusters Collection) CaloCluster {
	if !m.Found() || clusters == nil || m.Index >= clusters.Len() {
		return nil
	}
	return clusters.At(m.Index)
}

// DeltaR returns sqrt(dEta^2 + dPhi^2) with dPhi taken as a plain
// difference.
func DeltaR(etaA, phiA, etaB, phiB float64) float64 {
	dEta := etaB - etaA
	dPhi := phiB - phiA
	return math.Sqrt(dEta*dEta + dPhi*dPhi)
}

// Nearest returns the cluster closest to impact in eta-phi. Ties keep the
// earliest cluster. An empty or nil collection yields Unmatched. If no
// distance is finite-comparable (all NaN) the first cluster is returned.
func Nearest(impact r3.Vec, clusters Collection) Match {
	if clusters == nil || clusters.Len() == 0 {
		return Unmatched()
	}

	eta, phi := geometry.EtaPhi(impact)
	best := Match{Index: 0, Distance: math.Inf(1)}
	for i := 0; i < clusters.Len(); i++ {
		cEta, cPhi := geometry.EtaPhi(clusters.At(i).Position())
		if d := DeltaR(eta, phi, cEta, cPhi); d < best.Distance {
			best = Match{Index: i, Distance: d}
		}
	}
	return best
}
