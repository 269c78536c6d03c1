// Package eventio reads event fixtures for the impact resolver and writes
// its results.
//
// An event file lists one or more events, each with tracks and clusters.
// Files are JSON or YAML, chosen by extension, and are validated before
// use. Lengths and momenta may be given in any supported unit and are
// converted to cm and GeV on the way in.
package eventio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/banshee-data/calo-impact/internal/clustermatch"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/impact"
	"github.com/banshee-data/calo-impact/internal/monitoring"
	"github.com/banshee-data/calo-impact/internal/units"
	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Format is an event file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const maxFileSize = 16 * 1024 * 1024

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported event file format")
	// ErrAmbiguousCluster is returned when a cluster gives both a position
	// and eta/phi coordinates.
	ErrAmbiguousCluster = errors.New("cluster must set either position or eta/phi, not both")
)

// File is the top level of an event fixture.
type File struct {
	LengthUnit   string  `json:"length_unit,omitempty" yaml:"length_unit,omitempty" validate:"omitempty,oneof=cm mm m"`
	MomentumUnit string  `json:"momentum_unit,omitempty" yaml:"momentum_unit,omitempty" validate:"omitempty,oneof=GeV MeV"`
	Events       []Event `json:"events" yaml:"events" validate:"required,min=1,dive"`
}

// Event is one collision: tracks and the clusters they are matched to.
type Event struct {
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	Tracks   []TrackSpec   `json:"tracks" yaml:"tracks" validate:"dive"`
	Clusters []ClusterSpec `json:"clusters" yaml:"clusters" validate:"dive"`
}

// TrackSpec is the innermost state of a track as written in the file.
type TrackSpec struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Position []float64 `json:"position" yaml:"position" validate:"len=3"`
	Momentum []float64 `json:"momentum" yaml:"momentum" validate:"len=3"`
	Charge   int       `json:"charge" yaml:"charge" validate:"oneof=-1 0 1"`
	Valid    *bool     `json:"valid,omitempty" yaml:"valid,omitempty"` // default true
}

// ClusterSpec places a cluster either by Cartesian position or by eta/phi
// on a cylinder of radius Rho (default the barrel radius).
type ClusterSpec struct {
	Position []float64 `json:"position,omitempty" yaml:"position,omitempty" validate:"omitempty,len=3"`
	Eta      *float64  `json:"eta,omitempty" yaml:"eta,omitempty" validate:"required_without=Position"`
	Phi      *float64  `json:"phi,omitempty" yaml:"phi,omitempty" validate:"required_with=Eta"`
	Rho      *float64  `json:"rho,omitempty" yaml:"rho,omitempty" validate:"omitempty,gt=0"`
	Energy   float64   `json:"energy" yaml:"energy" validate:"gte=0"`
}

// Input is an event converted to resolver inputs.
type Input struct {
	ID       string
	TrackIDs []string
	Tracks   []impact.Track
	Clusters clustermatch.Clusters
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as they appear in the file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and validates an event file.
func Load(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	format, err := FormatFromPath(cleanPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat event file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("event file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return f, nil
}

// Decode parses and validates event data. Unknown fields are rejected.
func Decode(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse event JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse event YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints and cluster coordinate exclusivity.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid event file: %w", err)
	}
	for i, ev := range f.Events {
		for j, c := range ev.Clusters {
			if c.Position != nil && c.Eta != nil {
				return fmt.Errorf("event %d cluster %d: %w", i, j, ErrAmbiguousCluster)
			}
		}
	}
	return nil
}

func (f *File) lengthUnit() string {
	if f.LengthUnit == "" {
		return units.CM
	}
	return f.LengthUnit
}

func (f *File) momentumUnit() string {
	if f.MomentumUnit == "" {
		return units.GeV
	}
	return f.MomentumUnit
}

// Inputs converts every event to resolver inputs in cm and GeV. Tracks
// whose momentum magnitude is below minMomentum (GeV) are marked invalid.
func (f *File) Inputs(minMomentum float64) []Input {
	lu, mu := f.lengthUnit(), f.momentumUnit()
	inputs := make([]Input, len(f.Events))
	for i, ev := range f.Events {
		in := Input{
			ID:       ev.ID,
			TrackIDs: make([]string, len(ev.Tracks)),
			Tracks:   make([]impact.Track, len(ev.Tracks)),
			Clusters: make(clustermatch.Clusters, len(ev.Clusters)),
		}
		if in.ID == "" {
			in.ID = fmt.Sprintf("event-%d", i)
		}

		for j, ts := range ev.Tracks {
			rec := ts.record(j, lu, mu)
			if rec.State.Valid && r3.Norm(rec.State.Momentum) < minMomentum {
				monitoring.Debugf("[eventio] %s track %s below momentum floor %.3g GeV", in.ID, rec.ID, minMomentum)
				rec.State.Valid = false
			}
			in.TrackIDs[j] = rec.ID
			in.Tracks[j] = rec
		}
		for j, cs := range ev.Clusters {
			in.Clusters[j] = cs.cluster(lu)
		}
		inputs[i] = in
	}
	return inputs
}

func (t TrackSpec) record(index int, lengthUnit, momentumUnit string) impact.TrackRecord {
	id := t.ID
	if id == "" {
		id = fmt.Sprintf("%d", index)
	}
	valid := t.Valid == nil || *t.Valid
	return impact.TrackRecord{
		ID: id,
		State: impact.TrajectoryState{
			Position: vec(t.Position, func(v float64) float64 { return units.LengthToCM(v, lengthUnit) }),
			Momentum: vec(t.Momentum, func(v float64) float64 { return units.MomentumToGeV(v, momentumUnit) }),
			Charge:   t.Charge,
			Valid:    valid,
		},
	}
}

func (c ClusterSpec) cluster(lengthUnit string) clustermatch.Cluster {
	if c.Position != nil {
		return clustermatch.Cluster{
			Pos:    vec(c.Position, func(v float64) float64 { return units.LengthToCM(v, lengthUnit) }),
			Energy: c.Energy,
		}
	}
	rho := geometry.BarrelRadius
	if c.Rho != nil {
		rho = units.LengthToCM(*c.Rho, lengthUnit)
	}
	return clustermatch.AtEtaPhi(*c.Eta, *c.Phi, rho, c.Energy)
}

// vec converts a validated three-element slice.
func vec(v []float64, conv func(float64) float64) r3.Vec {
	return r3.Vec{X: conv(v[0]), Y: conv(v[1]), Z: conv(v[2])}
}
