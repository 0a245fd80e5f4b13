package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/hemolab/pulsim/internal/circ"
)

// Tags of the supported topologies.
const (
	TagSyspul = "syspul"
	TagWk2    = "2elwindkessel"
	TagWk4LsZ = "4elwindkesselLsZ"
	TagWk4LpZ = "4elwindkesselLpZ"
)

type factory func(params map[string]float64, drive *Drive) (circ.Model, error)

var registry = map[string]factory{
	TagSyspul: func(params map[string]float64, _ *Drive) (circ.Model, error) {
		p, err := SyspulParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		return NewSyspul(p)
	},
	TagWk2: func(params map[string]float64, drive *Drive) (circ.Model, error) {
		p, err := WindkesselParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		return NewWindkessel2(p, driveOrDefault(drive))
	},
	TagWk4LsZ: func(params map[string]float64, drive *Drive) (circ.Model, error) {
		p, err := WindkesselParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		return NewWindkessel4LsZ(p, driveOrDefault(drive))
	},
	TagWk4LpZ: func(params map[string]float64, drive *Drive) (circ.Model, error) {
		p, err := WindkesselParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		return NewWindkessel4LpZ(p, driveOrDefault(drive))
	},
}

// New instantiates a topology by tag. drive supplies the coupling
// quantity for open (Windkessel) topologies and is ignored by the
// closed loop; nil selects a pulsatile demo in-flow.
func New(tag string, params map[string]float64, drive *Drive) (circ.Model, error) {
	f, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", circ.ErrUnknownModel, tag)
	}
	return f(params, drive)
}

// List returns the known topology tags, sorted.
func List() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// driveOrDefault falls back to a half-rectified sinusoidal in-flow,
// the usual standalone stand-in for ventricular ejection.
func driveOrDefault(d *Drive) Drive {
	if d != nil {
		return *d
	}
	return Drive{
		Kind: CouplingFlux,
		Curve: func(t float64) float64 {
			q := math.Sin(2 * math.Pi * t)
			if q < 0 {
				return 0
			}
			return 85e3 * q
		},
	}
}
