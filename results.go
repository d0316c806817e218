package pulsim

import (
	"golang.org/x/exp/rand"
)

// OutcomeCounter is a histogram over measurement bitstrings. Values are
// counts while accumulating and probabilities after normalization.
type OutcomeCounter map[string]float64

func (c OutcomeCounter) addCounts(other OutcomeCounter) {
	for k, v := range other {
		c[k] += v
	}
}

// Total returns the sum of all entries.
func (c OutcomeCounter) Total() float64 {
	total := 0.0
	for _, v := range c {
		total += v
	}
	return total
}

// MeasurementErrors are the SPAM detection error rates: Epsilon is the
// false-positive rate (a 0 read as 1), EpsilonPrime the false-negative.
type MeasurementErrors struct {
	Epsilon      float64
	EpsilonPrime float64
}

// Result is what Run produces: a coherent trajectory for a deterministic
// Hamiltonian, or aggregated outcome statistics for a stochastic one.
type Result interface {
	ResultTimes() []float64
}

/*
CoherentResult is the trajectory of a single solve: one state per
evaluation time. Outcome statistics can still be sampled from any of its
states, which is how the stochastic cases reuse it internally.
*/
type CoherentResult struct {
	States     []*QuantumState
	EvalTimes  []float64
	Basis      SystemBasis
	MeasBasis  string
	MeasErrors *MeasurementErrors

	bset *basisSet
}

func (r *CoherentResult) ResultTimes() []float64 { return r.EvalTimes }

/*
SampleState draws n measurement outcomes from the state at time index ti
and returns them as a bitstring histogram. Detection errors, when
configured, flip each sampled bit independently.
*/
func (r *CoherentResult) SampleState(ti, n int, rng *rand.Rand) OutcomeCounter {
	state := r.States[ti]
	oneIndex := r.bset.stateIndex(oneLevel(r.MeasBasis))
	weights := state.outcomeWeights(oneIndex)

	counts := make(OutcomeCounter)
	for i := 0; i < n; i++ {
		outcome := drawOutcome(weights, rng)
		if r.MeasErrors != nil {
			outcome = flipBits(outcome, state.Qubits, r.MeasErrors, rng)
		}
		counts[bitstring(outcome, state.Qubits)]++
	}
	return counts
}

// oneLevel is the per-qubit level that reads out as 1 in each
// measurement basis.
func oneLevel(measBasis string) string {
	switch measBasis {
	case string(SystemDigital):
		return "h"
	case string(SystemXY):
		return "u"
	default:
		return "r"
	}
}

func flipBits(outcome, n int, errs *MeasurementErrors, rng *rand.Rand) int {
	for q := 0; q < n; q++ {
		bit := 1 << (n - 1 - q)
		if outcome&bit != 0 {
			if rng.Float64() < errs.EpsilonPrime {
				outcome &^= bit
			}
		} else if rng.Float64() < errs.Epsilon {
			outcome |= bit
		}
	}
	return outcome
}

/*
NoisyResult aggregates the stochastic cases: per evaluation time, the
normalized outcome distribution accumulated over runs·samplesPerRun
measurements.
*/
type NoisyResult struct {
	Probabilities []OutcomeCounter
	EvalTimes     []float64
	Basis         SystemBasis
	Measurements  int
}

func (r *NoisyResult) ResultTimes() []float64 { return r.EvalTimes }
