package pulsim

import (
	"fmt"
	"math"
	"runtime"
)

// NoiseType names one of the supported noise channels.
type NoiseType string

const (
	NoiseDephasing NoiseType = "dephasing"
	NoiseDoppler   NoiseType = "doppler"
	NoiseAmplitude NoiseType = "amplitude"
	NoiseSPAM      NoiseType = "SPAM"
)

// Physical constants for the Doppler sigma: effective wavevector of the
// two-photon Rydberg transition (rad/µm), Boltzmann constant (J/K) and
// the mass of a Rb-87 atom (kg).
const (
	keff     = 8.7
	kb       = 1.38064852e-23
	atomMass = 1.45e-25
)

// SolverOptions tunes the external propagator. MaxStep is in µs; zero
// means "derive from the schedule" (half the minimum pulse/delay duration).
type SolverOptions struct {
	MaxStep float64
}

/*
SimConfig collects the noise model and the statistics parameters of a
simulation. It is consumed read-only; Simulation.SetConfig validates a
candidate before adopting any of it.
*/
type SimConfig struct {
	Noise         []NoiseType
	Runs          int
	SamplesPerRun int
	Workers       int

	// SPAM parameters: state-prep failure probability and the false
	// positive / false negative detection error rates.
	Eta          float64
	Epsilon      float64
	EpsilonPrime float64

	Temperature   float64 // K, sets the Doppler sigma
	LaserWaist    float64 // µm
	DephasingProb float64

	SolverOptions SolverOptions
}

// DefaultSimConfig returns a noiseless configuration with the usual
// hardware-flavoured defaults.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Runs:          15,
		SamplesPerRun: 5,
		Workers:       runtime.GOMAXPROCS(0),
		Eta:           0.005,
		Epsilon:       0.01,
		EpsilonPrime:  0.05,
		Temperature:   50e-6,
		LaserWaist:    175,
		DephasingProb: 0.05,
	}
}

// HasNoise reports whether t is part of the configured noise set.
func (c SimConfig) HasNoise(t NoiseType) bool {
	for _, n := range c.Noise {
		if n == t {
			return true
		}
	}
	return false
}

// NoiseWithin reports whether the configured noise set is a subset of the
// given types.
func (c SimConfig) NoiseWithin(types ...NoiseType) bool {
	allowed := make(map[NoiseType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	for _, n := range c.Noise {
		if !allowed[n] {
			return false
		}
	}
	return true
}

// DopplerSigma is the standard deviation of the thermal Doppler detuning,
// keff·sqrt(kB·T/m), in rad/µs.
func (c SimConfig) DopplerSigma() float64 {
	return keff * math.Sqrt(kb*c.Temperature/atomMass)
}

// validateNoise checks the noise set against the interaction mode. Ising
// mode supports every noise type; XY supports SPAM only.
func validateNoise(cfg SimConfig, xy bool) error {
	if !xy {
		return nil
	}
	for _, n := range cfg.Noise {
		if n != NoiseSPAM {
			return fmt.Errorf("%w: XY mode cannot simulate %q", ErrUnsupportedNoise, n)
		}
	}
	return nil
}

/*
mergeConfig unions the incoming noise set into base. Parameters of noise
types that are new to base are taken from the incoming config; noise types
already present keep their existing parameters.
*/
func mergeConfig(base, incoming SimConfig) SimConfig {
	merged := base
	merged.Noise = append([]NoiseType(nil), base.Noise...)
	for _, n := range incoming.Noise {
		if base.HasNoise(n) {
			continue
		}
		merged.Noise = append(merged.Noise, n)
		switch n {
		case NoiseSPAM:
			merged.Eta = incoming.Eta
			merged.Epsilon = incoming.Epsilon
			merged.EpsilonPrime = incoming.EpsilonPrime
		case NoiseDoppler:
			merged.Temperature = incoming.Temperature
		case NoiseAmplitude:
			merged.LaserWaist = incoming.LaserWaist
		case NoiseDephasing:
			merged.DephasingProb = incoming.DephasingProb
		}
	}
	return merged
}
