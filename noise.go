package pulsim

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

/*
noiseState is the per-qubit stochastic state of one realization: which
atoms failed preparation and the thermal Doppler detuning each one sees.
Redrawn at the start of every stochastic realization; reset to neutral
whenever the corresponding noise type is disabled.
*/
type noiseState struct {
	badAtoms      map[QubitID]bool
	dopplerDetune map[QubitID]float64
}

func newNoiseState(reg *Register) *noiseState {
	ns := &noiseState{
		badAtoms:      make(map[QubitID]bool, reg.Size()),
		dopplerDetune: make(map[QubitID]float64, reg.Size()),
	}
	for _, id := range reg.IDs() {
		ns.badAtoms[id] = false
		ns.dopplerDetune[id] = 0
	}
	return ns
}

// update redraws the stochastic state from cfg using src. Disabled noise
// types force their part of the state back to neutral, so a noiseless
// update is deterministic.
func (ns *noiseState) update(cfg SimConfig, reg *Register, src rand.Source) {
	if cfg.HasNoise(NoiseSPAM) && cfg.Eta > 0 {
		prep := distuv.Bernoulli{P: cfg.Eta, Src: src}
		for _, id := range reg.IDs() {
			ns.badAtoms[id] = prep.Rand() == 1
		}
	} else {
		for _, id := range reg.IDs() {
			ns.badAtoms[id] = false
		}
	}

	if cfg.HasNoise(NoiseDoppler) {
		detune := distuv.Normal{Mu: 0, Sigma: cfg.DopplerSigma(), Src: src}
		for _, id := range reg.IDs() {
			ns.dopplerDetune[id] = detune.Rand()
		}
	} else {
		for _, id := range reg.IDs() {
			ns.dopplerDetune[id] = 0
		}
	}
}

// setBadAtoms overwrites the preparation flags from a drawn configuration
// bitstring ('1' marks a failed atom), in register index order.
func (ns *noiseState) setBadAtoms(reg *Register, bits string) {
	for i, id := range reg.IDs() {
		ns.badAtoms[id] = bits[i] == '1'
	}
}

// goodAtoms counts the qubits whose preparation succeeded.
func (ns *noiseState) goodAtoms() int {
	n := 0
	for _, bad := range ns.badAtoms {
		if !bad {
			n++
		}
	}
	return n
}
