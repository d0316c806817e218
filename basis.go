package pulsim

import (
	"gonum.org/v1/gonum/mat"
)

// SystemBasis names the Hilbert-space basis the simulation runs in. It is
// classified once from the schedule and handed around as a tagged value.
type SystemBasis string

const (
	SystemGroundRydberg SystemBasis = "ground-rydberg"
	SystemDigital       SystemBasis = "digital"
	SystemAll           SystemBasis = "all"
	SystemXY            SystemBasis = "XY"
)

/*
classifyBasis decides which basis the simulation runs in. XY channels force
the two-level {u,d} basis. In Ising mode the decision depends on which of
the ground-rydberg and digital sub-bases actually carry pulses: one of them
alone gives a two-level basis, both together the three-level "all" basis.
*/
func classifyBasis(seq *Sequence) SystemBasis {
	if seq.InXY() {
		return SystemXY
	}
	driven := map[DriveBasis]bool{}
	for _, ch := range seq.Channels {
		for _, slot := range ch.Slots {
			if slot.Pulse != nil {
				driven[ch.Basis] = true
				break
			}
		}
	}
	switch {
	case !driven[BasisDigital]:
		return SystemGroundRydberg
	case !driven[BasisGroundRydberg]:
		return SystemDigital
	default:
		return SystemAll
	}
}

/*
basisSet fixes the per-qubit dimension, the basis state labels and the
registry of named single-qubit operators (identity plus the projectors and
raising/lowering operators the Hamiltonian needs) for one SystemBasis.
*/
type basisSet struct {
	name   SystemBasis
	dim    int
	states []string
	ops    map[string]*mat.CDense
}

func newBasisSet(name SystemBasis) *basisSet {
	var states []string
	var projectors []string
	switch name {
	case SystemXY:
		states = []string{"u", "d"}
		projectors = []string{"uu", "du", "ud", "dd"}
	case SystemGroundRydberg:
		states = []string{"r", "g"}
		projectors = []string{"gr", "rr", "gg"}
	case SystemDigital:
		states = []string{"g", "h"}
		projectors = []string{"hg", "hh", "gg"}
	default:
		states = []string{"r", "g", "h"}
		projectors = []string{"gr", "hg", "rr", "gg", "hh"}
	}

	b := &basisSet{
		name:   name,
		dim:    len(states),
		states: states,
		ops:    map[string]*mat.CDense{"I": eye(len(states))},
	}
	for _, proj := range projectors {
		// sigma_ab = |a><b|
		op := zeros(b.dim, b.dim)
		op.Set(b.stateIndex(string(proj[0])), b.stateIndex(string(proj[1])), 1)
		b.ops["sigma_"+proj] = op
	}
	return b
}

func (b *basisSet) stateIndex(label string) int {
	for i, s := range b.states {
		if s == label {
			return i
		}
	}
	return -1
}

// groundLabel is the state every qubit is prepared in: "d" for the XY basis,
// "g" otherwise.
func (b *basisSet) groundLabel() string {
	if b.name == SystemXY {
		return "d"
	}
	return "g"
}

// operator returns the registered single-qubit operator for name.
func (b *basisSet) operator(name string) (*mat.CDense, bool) {
	op, ok := b.ops[name]
	return op, ok
}
