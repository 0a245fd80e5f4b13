package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "syspul" {
		t.Errorf("expected model syspul, got %s", cfg.Model)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if !cfg.InitialBE {
		t.Error("first step should default to backward Euler")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumSteps = 500
	cfg.Parameters = map[string]float64{"R_ar_sys": 150e-6}
	cfg.InitialConditions = map[string]float64{"p_at_l": 0.6}
	cfg.Perturbation = PerturbationConfig{Type: "bleed", Factor: 1.49, AfterCycle: 10}

	path := filepath.Join(t.TempDir(), "run.yml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.NumSteps != 500 {
		t.Errorf("numstep %d, expected 500", got.NumSteps)
	}
	if got.Parameters["R_ar_sys"] != 150e-6 {
		t.Errorf("parameter override lost: %v", got.Parameters)
	}
	if got.InitialConditions["p_at_l"] != 0.6 {
		t.Errorf("initial condition lost: %v", got.InitialConditions)
	}
	if got.Perturbation != cfg.Perturbation {
		t.Errorf("perturbation %+v, expected %+v", got.Perturbation, cfg.Perturbation)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("model: syspul\ntimestep: 0.01\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for the misspelled key")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.yml")
	if err := os.WriteFile(path, []byte("model: 2elwindkessel\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "2elwindkessel" {
		t.Errorf("model %q", cfg.Model)
	}
	if cfg.Solver.MaxIter != DefaultMaxIter {
		t.Errorf("solver defaults not applied: %+v", cfg.Solver)
	}
	if cfg.Periodic.Check != "allvar" {
		t.Errorf("periodic defaults not applied: %+v", cfg.Periodic)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero steps", func(c *Config) { c.NumSteps = 0 }},
		{"theta out of range", func(c *Config) { c.Theta = 1.5 }},
		{"zero record interval", func(c *Config) { c.RecordEvery = 0 }},
		{"zero maxiter", func(c *Config) { c.Solver.MaxIter = 0 }},
		{"zero tolerance", func(c *Config) { c.Solver.TolRes = 0 }},
		{"zero eps", func(c *Config) { c.Periodic.Eps = 0 }},
		{"bad checktype", func(c *Config) { c.Periodic.Check = "flows" }},
		{"perturbation without factor", func(c *Config) {
			c.Perturbation = PerturbationConfig{Type: "bleed", AfterCycle: 2}
		}},
		{"perturbation without cycle", func(c *Config) {
			c.Perturbation = PerturbationConfig{Type: "bleed", Factor: 1.49}
		}},
		{"bad coupling kind", func(c *Config) {
			c.Coupling = CouplingConfig{Kind: "pressure", Period: 1}
		}},
		{"zero coupling period", func(c *Config) {
			c.Coupling = CouplingConfig{Kind: "flux", Amplitude: 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("syspul", "bleed")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Perturbation.Type != "bleed" {
		t.Errorf("expected bleed perturbation, got %+v", cfg.Perturbation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset must validate, got %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("syspul", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "baseline"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	if presets := ListPresets("syspul"); len(presets) == 0 {
		t.Error("expected presets for syspul")
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestAllPresetsValidate(t *testing.T) {
	for model, byName := range Presets {
		for name, cfg := range byName {
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s/%s: %v", model, name, err)
			}
			if cfg.Model != model {
				t.Errorf("preset %s/%s declares model %q", model, name, cfg.Model)
			}
		}
	}
}
