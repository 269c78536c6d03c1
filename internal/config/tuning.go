package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/calo-impact/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the propagation, field and resolver parameters.
// Every field is optional; the Get* methods supply defaults for any value
// the file leaves out.
type TuningConfig struct {
	// Field params
	FieldBzTesla       *float64 `json:"field_bz_tesla,omitempty"`
	FieldRadiusCM      *float64 `json:"field_radius_cm,omitempty"`
	FieldHalfLengthCM  *float64 `json:"field_half_length_cm,omitempty"`
	FieldMapLengthUnit *string  `json:"field_map_length_unit,omitempty"` // cm, mm or m
	FieldMapFieldUnit  *string  `json:"field_map_field_unit,omitempty"`  // T, kG or G

	// Event params
	EventMomentumFloor *float64 `json:"event_momentum_floor_gev,omitempty"`

	// Propagator params
	StepCM              *float64 `json:"step_cm,omitempty"`
	MaxPathCM           *float64 `json:"max_path_cm,omitempty"`
	CrossingToleranceCM *float64 `json:"crossing_tolerance_cm,omitempty"`
	MaxRefineIterations *int     `json:"max_refine_iterations,omitempty"`
	MassGeV             *float64 `json:"mass_gev,omitempty"`

	// Resolver params
	BarrelEtaMax *float64 `json:"barrel_eta_max,omitempty"`
	Workers      *int     `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		FieldBzTesla:        ptrFloat64(c.GetFieldBzTesla()),
		FieldRadiusCM:       ptrFloat64(c.GetFieldRadiusCM()),
		FieldHalfLengthCM:   ptrFloat64(c.GetFieldHalfLengthCM()),
		FieldMapLengthUnit:  ptrString(c.GetFieldMapLengthUnit()),
		FieldMapFieldUnit:   ptrString(c.GetFieldMapFieldUnit()),
		EventMomentumFloor:  ptrFloat64(c.GetEventMomentumFloor()),
		StepCM:              ptrFloat64(c.GetStepCM()),
		MaxPathCM:           ptrFloat64(c.GetMaxPathCM()),
		CrossingToleranceCM: ptrFloat64(c.GetCrossingToleranceCM()),
		MaxRefineIterations: ptrInt(c.GetMaxRefineIterations()),
		MassGeV:             ptrFloat64(c.GetMassGeV()),
		BarrelEtaMax:        ptrFloat64(c.GetBarrelEtaMax()),
		Workers:             ptrInt(c.GetWorkers()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"field_radius_cm", c.FieldRadiusCM},
		{"field_half_length_cm", c.FieldHalfLengthCM},
		{"step_cm", c.StepCM},
		{"max_path_cm", c.MaxPathCM},
		{"crossing_tolerance_cm", c.CrossingToleranceCM},
		{"mass_gev", c.MassGeV},
		{"barrel_eta_max", c.BarrelEtaMax},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0) {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	if c.StepCM != nil && c.MaxPathCM != nil && *c.StepCM > *c.MaxPathCM {
		return fmt.Errorf("step_cm (%f) must not exceed max_path_cm (%f)", *c.StepCM, *c.MaxPathCM)
	}

	if c.MaxRefineIterations != nil && *c.MaxRefineIterations < 1 {
		return fmt.Errorf("max_refine_iterations must be at least 1, got %d", *c.MaxRefineIterations)
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.EventMomentumFloor != nil && *c.EventMomentumFloor < 0 {
		return fmt.Errorf("event_momentum_floor_gev must be non-negative, got %f", *c.EventMomentumFloor)
	}

	if c.FieldMapLengthUnit != nil && !units.IsValidLength(*c.FieldMapLengthUnit) {
		return fmt.Errorf("invalid field_map_length_unit %q: must be one of %s", *c.FieldMapLengthUnit, units.ValidLengthString())
	}
	if c.FieldMapFieldUnit != nil && !units.IsValidField(*c.FieldMapFieldUnit) {
		return fmt.Errorf("invalid field_map_field_unit %q: must be one of %s", *c.FieldMapFieldUnit, units.ValidFieldString())
	}

	return nil
}

// GetFieldBzTesla returns the uniform solenoid field in tesla.
func (c *TuningConfig) GetFieldBzTesla() float64 {
	if c.FieldBzTesla == nil {
		return 3.8
	}
	return *c.FieldBzTesla
}

// GetFieldRadiusCM returns the radius of the uniform field volume.
func (c *TuningConfig) GetFieldRadiusCM() float64 {
	if c.FieldRadiusCM == nil {
		return 300
	}
	return *c.FieldRadiusCM
}

// GetFieldHalfLengthCM returns the half-length of the uniform field volume.
func (c *TuningConfig) GetFieldHalfLengthCM() float64 {
	if c.FieldHalfLengthCM == nil {
		return 400
	}
	return *c.FieldHalfLengthCM
}

// GetFieldMapLengthUnit returns the length unit of field map files.
func (c *TuningConfig) GetFieldMapLengthUnit() string {
	if c.FieldMapLengthUnit == nil {
		return units.CM
	}
	return *c.FieldMapLengthUnit
}

// GetFieldMapFieldUnit returns the field unit of field map files.
func (c *TuningConfig) GetFieldMapFieldUnit() string {
	if c.FieldMapFieldUnit == nil {
		return units.Tesla
	}
	return *c.FieldMapFieldUnit
}

// GetEventMomentumFloor returns the momentum below which event tracks are
// marked invalid on load. Zero keeps every track.
func (c *TuningConfig) GetEventMomentumFloor() float64 {
	if c.EventMomentumFloor == nil {
		return 0
	}
	return *c.EventMomentumFloor
}

// GetStepCM returns the integration step length.
func (c *TuningConfig) GetStepCM() float64 {
	if c.StepCM == nil {
		return 1.0
	}
	return *c.StepCM
}

// GetMaxPathCM returns the propagation path length limit.
func (c *TuningConfig) GetMaxPathCM() float64 {
	if c.MaxPathCM == nil {
		return 3000
	}
	return *c.MaxPathCM
}

// GetCrossingToleranceCM returns the crossing refinement tolerance.
func (c *TuningConfig) GetCrossingToleranceCM() float64 {
	if c.CrossingToleranceCM == nil {
		return 1e-6
	}
	return *c.CrossingToleranceCM
}

// GetMaxRefineIterations returns the crossing refinement iteration limit.
func (c *TuningConfig) GetMaxRefineIterations() int {
	if c.MaxRefineIterations == nil {
		return 50
	}
	return *c.MaxRefineIterations
}

// GetMassGeV returns the mass hypothesis used for time of flight.
func (c *TuningConfig) GetMassGeV() float64 {
	if c.MassGeV == nil {
		return 0.000511 // electron
	}
	return *c.MassGeV
}

// GetBarrelEtaMax returns the barrel acceptance limit.
func (c *TuningConfig) GetBarrelEtaMax() float64 {
	if c.BarrelEtaMax == nil {
		return 1.479
	}
	return *c.BarrelEtaMax
}

// GetWorkers returns the resolver worker count. Zero means GOMAXPROCS.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
