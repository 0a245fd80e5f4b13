package config

// Presets are ready-to-run configurations keyed by topology tag, then
// by scenario name. Nil Parameters/InitialConditions mean "use the
// topology's documented baseline".
var Presets = map[string]map[string]*Config{
	"syspul": {
		"baseline": {
			Model: "syspul", Dt: 0.01, NumSteps: 30000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "allvar"},
		},
		"bleed": {
			Model: "syspul", Dt: 0.01, NumSteps: 30000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Parameters: map[string]float64{
				"volume_loss":    100e3, // mm^3 withdrawn over the window
				"bleed_duration": 2.0,
			},
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "allvar"},
			Perturbation: PerturbationConfig{
				Type: "bleed", Factor: 1.49, AfterCycle: 10,
			},
		},
		"pressure_check": {
			Model: "syspul", Dt: 0.01, NumSteps: 30000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "pressure"},
		},
	},
	"2elwindkessel": {
		"pulsatile": {
			Model: "2elwindkessel", Dt: 0.005, NumSteps: 4000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "allvar"},
			Coupling: CouplingConfig{Kind: "flux", Amplitude: 85e3, Period: 1.0},
		},
	},
	"4elwindkesselLsZ": {
		"pulsatile": {
			Model: "4elwindkesselLsZ", Dt: 0.005, NumSteps: 4000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "allvar"},
			Coupling: CouplingConfig{Kind: "flux", Amplitude: 85e3, Period: 1.0},
		},
	},
	"4elwindkesselLpZ": {
		"pulsatile": {
			Model: "4elwindkesselLpZ", Dt: 0.005, NumSteps: 4000,
			Theta: 0.5, InitialBE: true, RecordEvery: 1,
			Solver:   SolverConfig{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8},
			Periodic: PeriodicConfig{Eps: 1e-8, Check: "allvar"},
			Coupling: CouplingConfig{Kind: "volume", Amplitude: 80e3, Period: 1.0},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
