// Package report draws impact points, clusters and their matches in the
// (eta, phi) plane as a PNG (gonum/plot) or an interactive HTML page
// (go-echarts).
package report

import (
	"fmt"
	"math"

	"github.com/banshee-data/calo-impact/internal/clustermatch"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/impact"
)

// Event is one resolver call to draw.
type Event struct {
	ID       string
	Output   impact.Output
	Clusters clustermatch.Collection
}

// regions lists the drawn impact regions in legend order.
var regions = []impact.Region{
	impact.RegionBarrel,
	impact.RegionPositiveEndcap,
	impact.RegionNegativeEndcap,
}

type etaPhi struct {
	eta, phi float64
	label    string
}

// layers is the plot content shared by both renderers.
type layers struct {
	impacts  map[impact.Region][]etaPhi
	clusters []etaPhi
	links    [][2]etaPhi // impact to matched cluster
}

func (l layers) impactCount() int {
	n := 0
	for _, pts := range l.impacts {
		n += len(pts)
	}
	return n
}

// collect converts events to eta-phi points. Failed tracks and points on
// the beam axis are left out.
func collect(events []Event) layers {
	l := layers{impacts: make(map[impact.Region][]etaPhi)}
	for _, ev := range events {
		var clusters []etaPhi
		if ev.Clusters != nil {
			clusters = make([]etaPhi, ev.Clusters.Len())
			for i := range clusters {
				eta, phi := geometry.EtaPhi(ev.Clusters.At(i).Position())
				clusters[i] = etaPhi{eta: eta, phi: phi, label: fmt.Sprintf("%s cluster %d", ev.ID, i)}
				if finite(clusters[i]) {
					l.clusters = append(l.clusters, clusters[i])
				}
			}
		}

		out := ev.Output
		for i := 0; i < out.Len(); i++ {
			if !out.Valid(i) {
				continue
			}
			eta, phi := geometry.EtaPhi(out.Positions[i])
			p := etaPhi{eta: eta, phi: phi, label: fmt.Sprintf("%s track %d", ev.ID, i)}
			if !finite(p) {
				continue
			}
			region := out.Regions[i]
			l.impacts[region] = append(l.impacts[region], p)

			if m := out.Matches[i]; m.Found() && m.Index < len(clusters) && finite(clusters[m.Index]) {
				l.links = append(l.links, [2]etaPhi{p, clusters[m.Index]})
			}
		}
	}
	return l
}

func finite(p etaPhi) bool {
	return !math.IsInf(p.eta, 0) && !math.IsNaN(p.eta) && !math.IsInf(p.phi, 0) && !math.IsNaN(p.phi)
}
