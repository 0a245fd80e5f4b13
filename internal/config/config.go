// Package config loads and validates run configurations. Decoding is
// strict: unknown keys are rejected rather than silently ignored.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.01
	DefaultNumSteps = 10000
	DefaultTheta    = 0.5
	DefaultMaxIter  = 25
	DefaultTol      = 1e-8
	DefaultEps      = 1e-8
)

type Config struct {
	Model       string  `yaml:"model"`
	Dt          float64 `yaml:"dt"`
	NumSteps    int     `yaml:"numstep"`
	Theta       float64 `yaml:"theta_ost"`
	InitialBE   bool    `yaml:"initial_backward_euler"`
	RecordEvery int     `yaml:"write_results_every"`

	// Parameters override the model's documented baseline constants,
	// by name. Unknown names fail at model construction.
	Parameters map[string]float64 `yaml:"parameters"`

	// InitialConditions assign one value per state entry, by name.
	InitialConditions map[string]float64 `yaml:"initial_conditions"`

	Solver       SolverConfig       `yaml:"solver"`
	Periodic     PeriodicConfig     `yaml:"periodic"`
	Perturbation PerturbationConfig `yaml:"perturbation"`
	Coupling     CouplingConfig     `yaml:"coupling"`
}

type SolverConfig struct {
	MaxIter int     `yaml:"maxiter"`
	TolRes  float64 `yaml:"tol_res"`
	TolInc  float64 `yaml:"tol_inc"`
}

type PeriodicConfig struct {
	Eps   float64 `yaml:"eps"`
	Check string  `yaml:"checktype"`
}

type PerturbationConfig struct {
	Type       string  `yaml:"type"`
	Factor     float64 `yaml:"factor"`
	AfterCycle int     `yaml:"after_cycle"`
}

// CouplingConfig describes the externally supplied scalar of an open
// (Windkessel) topology when run standalone: a half-rectified
// sinusoidal flux or volume curve.
type CouplingConfig struct {
	Kind      string  `yaml:"kind"`
	Amplitude float64 `yaml:"amplitude"`
	Period    float64 `yaml:"period"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:       "syspul",
		Dt:          DefaultDt,
		NumSteps:    DefaultNumSteps,
		Theta:       DefaultTheta,
		InitialBE:   true,
		RecordEvery: 1,
		Solver: SolverConfig{
			MaxIter: DefaultMaxIter,
			TolRes:  DefaultTol,
			TolInc:  DefaultTol,
		},
		Periodic: PeriodicConfig{
			Eps:   DefaultEps,
			Check: "allvar",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the solver-level controls once at load time. Model
// parameters and initial conditions are validated by the topology
// constructors.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must be set")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.NumSteps < 1 {
		return fmt.Errorf("numstep must be at least 1, got %d", c.NumSteps)
	}
	if c.Theta < 0 || c.Theta > 1 {
		return fmt.Errorf("theta_ost must lie in [0,1], got %g", c.Theta)
	}
	if c.RecordEvery < 1 {
		return fmt.Errorf("write_results_every must be at least 1, got %d", c.RecordEvery)
	}
	if c.Solver.MaxIter < 1 {
		return fmt.Errorf("solver maxiter must be at least 1, got %d", c.Solver.MaxIter)
	}
	if c.Solver.TolRes <= 0 || c.Solver.TolInc <= 0 {
		return fmt.Errorf("solver tolerances must be positive")
	}
	if c.Periodic.Eps <= 0 {
		return fmt.Errorf("periodic eps must be positive, got %g", c.Periodic.Eps)
	}
	switch c.Periodic.Check {
	case "allvar", "pressure":
	default:
		return fmt.Errorf("unknown periodic checktype %q", c.Periodic.Check)
	}
	if c.Perturbation.Type != "" {
		if c.Perturbation.Factor <= 0 {
			return fmt.Errorf("perturbation factor must be positive, got %g", c.Perturbation.Factor)
		}
		if c.Perturbation.AfterCycle < 1 {
			return fmt.Errorf("perturbation after_cycle must be at least 1, got %d", c.Perturbation.AfterCycle)
		}
	}
	if c.Coupling.Kind != "" {
		if c.Coupling.Kind != "flux" && c.Coupling.Kind != "volume" {
			return fmt.Errorf("unknown coupling kind %q", c.Coupling.Kind)
		}
		if c.Coupling.Period <= 0 {
			return fmt.Errorf("coupling period must be positive, got %g", c.Coupling.Period)
		}
	}
	return nil
}
