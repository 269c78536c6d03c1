package eventio

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/impact"
	"github.com/banshee-data/calo-impact/internal/timeutil"
	"github.com/banshee-data/calo-impact/internal/version"
	"github.com/google/uuid"
)

// Result is the document written after a run.
type Result struct {
	RunID     string        `json:"run_id"`
	Version   string        `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Events    []EventResult `json:"events"`
}

// EventResult holds the per-track outcome of one event.
type EventResult struct {
	ID     string        `json:"id"`
	Barrel int           `json:"barrel"`
	Endcap int           `json:"endcap"`
	Failed int           `json:"failed"`
	Tracks []TrackResult `json:"tracks"`
}

// TrackResult is one track's impact point and match. Coordinates that are
// undefined for the track are omitted.
type TrackResult struct {
	ID       string     `json:"id"`
	Region   string     `json:"region"`
	Position [3]float64 `json:"position"`
	Eta      *float64   `json:"eta,omitempty"`
	Phi      *float64   `json:"phi,omitempty"`
	Cluster  int        `json:"cluster"`
	Distance *float64   `json:"distance,omitempty"`
}

// ResultOption configures NewResult.
type ResultOption func(*resultOptions)

type resultOptions struct {
	clock timeutil.Clock
	runID uuid.UUID
}

// WithClock sets the clock used for CreatedAt.
func WithClock(c timeutil.Clock) ResultOption {
	return func(o *resultOptions) { o.clock = c }
}

// WithRunID fixes the run ID instead of generating a random one.
func WithRunID(id uuid.UUID) ResultOption {
	return func(o *resultOptions) { o.runID = id }
}

// NewResult pairs each input with its resolver output. inputs and outputs
// must have the same length.
func NewResult(inputs []Input, outputs []impact.Output, opts ...ResultOption) (*Result, error) {
	if len(inputs) != len(outputs) {
		return nil, fmt.Errorf("have %d inputs but %d outputs", len(inputs), len(outputs))
	}

	o := resultOptions{clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == uuid.Nil {
		o.runID = uuid.New()
	}

	res := &Result{
		RunID:     o.runID.String(),
		Version:   version.String(),
		CreatedAt: o.clock.Now().UTC(),
		Events:    make([]EventResult, len(inputs)),
	}
	for i, in := range inputs {
		out := outputs[i]
		if out.Len() != len(in.TrackIDs) {
			return nil, fmt.Errorf("event %s: have %d tracks but %d results", in.ID, len(in.TrackIDs), out.Len())
		}
		ev := EventResult{ID: in.ID, Tracks: make([]TrackResult, out.Len())}
		ev.Barrel, ev.Endcap, ev.Failed = out.Counts()
		for j := range ev.Tracks {
			ev.Tracks[j] = trackResult(in.TrackIDs[j], out, j)
		}
		res.Events[i] = ev
	}
	return res, nil
}

func trackResult(id string, out impact.Output, i int) TrackResult {
	p := out.Positions[i]
	m := out.Matches[i]
	tr := TrackResult{
		ID:       id,
		Region:   string(out.Regions[i]),
		Position: [3]float64{p.X, p.Y, p.Z},
		Cluster:  m.Index,
	}
	if out.Valid(i) {
		eta, phi := geometry.EtaPhi(p)
		tr.Eta = finite(eta)
		tr.Phi = finite(phi)
	}
	if m.Found() {
		tr.Distance = finite(m.Distance)
	}
	return tr
}

// finite returns nil for values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// WriteResult encodes r as indented JSON.
func WriteResult(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// WriteResultFile writes r to path, creating parent directories.
func WriteResultFile(path string, r *Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	if err := WriteResult(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
