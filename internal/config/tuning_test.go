package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.FieldBzTesla == nil || *cfg.FieldBzTesla != 3.8 {
		t.Errorf("Expected FieldBzTesla 3.8, got %v", cfg.FieldBzTesla)
	}
	if cfg.BarrelEtaMax == nil || *cfg.BarrelEtaMax != 1.479 {
		t.Errorf("Expected BarrelEtaMax 1.479, got %v", cfg.BarrelEtaMax)
	}
	if cfg.FieldMapFieldUnit == nil || *cfg.FieldMapFieldUnit != "T" {
		t.Errorf("Expected FieldMapFieldUnit 'T', got %v", cfg.FieldMapFieldUnit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	if cfg.GetStepCM() != 1.0 {
		t.Errorf("GetStepCM() = %f, want 1.0", cfg.GetStepCM())
	}
	if cfg.GetMassGeV() != 0.000511 {
		t.Errorf("GetMassGeV() = %f, want 0.000511", cfg.GetMassGeV())
	}
	if cfg.GetMaxRefineIterations() != 50 {
		t.Errorf("GetMaxRefineIterations() = %d, want 50", cfg.GetMaxRefineIterations())
	}
	if cfg.GetWorkers() != 0 {
		t.Errorf("GetWorkers() = %d, want 0", cfg.GetWorkers())
	}
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultTuningConfig(), fromFile); diff != "" {
		t.Errorf("%s differs from getter defaults (-getters +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "field_bz_tesla": 2.0,
  "step_cm": 0.5,
  "barrel_eta_max": 1.5,
  "field_map_length_unit": "mm",
  "workers": 4
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetFieldBzTesla(); got != 2.0 {
		t.Errorf("GetFieldBzTesla() = %f, want 2.0", got)
	}
	if got := cfg.GetStepCM(); got != 0.5 {
		t.Errorf("GetStepCM() = %f, want 0.5", got)
	}
	if got := cfg.GetBarrelEtaMax(); got != 1.5 {
		t.Errorf("GetBarrelEtaMax() = %f, want 1.5", got)
	}
	if got := cfg.GetFieldMapLengthUnit(); got != "mm" {
		t.Errorf("GetFieldMapLengthUnit() = %q, want mm", got)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}

	// Omitted fields fall back to defaults.
	if cfg.MaxPathCM != nil {
		t.Errorf("Expected MaxPathCM nil, got %v", *cfg.MaxPathCM)
	}
	if got := cfg.GetMaxPathCM(); got != 3000 {
		t.Errorf("GetMaxPathCM() = %f, want 3000", got)
	}
	if got := cfg.GetFieldMapFieldUnit(); got != "T" {
		t.Errorf("GetFieldMapFieldUnit() = %q, want T", got)
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("config.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "nope.json"), "failed to stat"},
		{"bad json", write("bad.json", "{not json"), "failed to parse"},
		{"negative step", write("step.json", `{"step_cm": -1}`), "step_cm must be positive"},
		{"zero mass", write("mass.json", `{"mass_gev": 0}`), "mass_gev must be positive"},
		{"step beyond path", write("path.json", `{"step_cm": 10, "max_path_cm": 5}`), "must not exceed"},
		{"refine iterations", write("refine.json", `{"max_refine_iterations": 0}`), "max_refine_iterations"},
		{"negative workers", write("workers.json", `{"workers": -2}`), "workers must be non-negative"},
		{"bad length unit", write("length.json", `{"field_map_length_unit": "in"}`), "field_map_length_unit"},
		{"bad field unit", write("field.json", `{"field_map_field_unit": "mT"}`), "field_map_field_unit"},
		{"negative floor", write("floor.json", `{"event_momentum_floor_gev": -0.1}`), "event_momentum_floor_gev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	data := make([]byte, 1024*1024+1)
	for i := range data {
		data[i] = ' '
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := LoadTuningConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestEmptyTuningConfig(t *testing.T) {
	cfg := EmptyTuningConfig()
	if diff := cmp.Diff(&TuningConfig{}, cfg); diff != "" {
		t.Errorf("EmptyTuningConfig() not empty:\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
	if got := cfg.GetFieldRadiusCM(); got != 300 {
		t.Errorf("GetFieldRadiusCM() = %f, want 300", got)
	}
	if got := cfg.GetFieldHalfLengthCM(); got != 400 {
		t.Errorf("GetFieldHalfLengthCM() = %f, want 400", got)
	}
	if got := cfg.GetCrossingToleranceCM(); got != 1e-6 {
		t.Errorf("GetCrossingToleranceCM() = %g, want 1e-6", got)
	}
	if got := cfg.GetEventMomentumFloor(); got != 0 {
		t.Errorf("GetEventMomentumFloor() = %f, want 0", got)
	}
}
