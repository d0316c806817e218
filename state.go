package pulsim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

/*
QuantumState is a state of the N-qubit system, either a state vector or a
density operator. Vector and Density are mutually exclusive; the density
form shows up when the propagator evolves under collapse operators.
*/
type QuantumState struct {
	Vector  []complex128
	Density *mat.CDense
	Dim     int
	Qubits  int
}

// IsDensity reports whether the state is a density operator.
func (s *QuantumState) IsDensity() bool { return s.Density != nil }

// Size returns the full Hilbert-space dimension.
func (s *QuantumState) Size() int { return intPow(s.Dim, s.Qubits) }

// allGroundState prepares every qubit in the basis' ground level.
func allGroundState(basis *basisSet, qubits int) *QuantumState {
	full := intPow(basis.dim, qubits)
	vec := make([]complex128, full)
	g := basis.stateIndex(basis.groundLabel())
	idx := 0
	for i := 0; i < qubits; i++ {
		idx = idx*basis.dim + g
	}
	vec[idx] = 1
	return &QuantumState{Vector: vec, Dim: basis.dim, Qubits: qubits}
}

// newVectorState wraps an explicit state vector, checking its shape
// against the system.
func newVectorState(vec []complex128, basis *basisSet, qubits int) (*QuantumState, error) {
	want := intPow(basis.dim, qubits)
	if len(vec) != want {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBadInitialState, want, len(vec))
	}
	return &QuantumState{Vector: vec, Dim: basis.dim, Qubits: qubits}, nil
}

// newDensityState wraps an explicit density operator, checking its shape.
func newDensityState(rho *mat.CDense, basis *basisSet, qubits int) (*QuantumState, error) {
	want := intPow(basis.dim, qubits)
	r, c := rho.Dims()
	if r != want || c != want {
		return nil, fmt.Errorf("%w: expected %dx%d, got %dx%d", ErrBadInitialState, want, want, r, c)
	}
	return &QuantumState{Density: rho, Dim: basis.dim, Qubits: qubits}, nil
}

// equalsVector reports whether the state is the given pure state vector.
func (s *QuantumState) equalsVector(vec []complex128) bool {
	if s.IsDensity() || len(s.Vector) != len(vec) {
		return false
	}
	for i := range vec {
		if s.Vector[i] != vec[i] {
			return false
		}
	}
	return true
}

// basisProbabilities returns the population of every full-space basis
// state: |amplitude|² for vectors, the real diagonal for densities.
func (s *QuantumState) basisProbabilities() []float64 {
	n := s.Size()
	probs := make([]float64, n)
	if s.IsDensity() {
		for i := 0; i < n; i++ {
			probs[i] = real(s.Density.At(i, i))
		}
		return probs
	}
	for i, amp := range s.Vector {
		probs[i] = real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	return probs
}

/*
outcomeWeights folds the full-space populations into measurement-basis
bitstring weights. oneIndex is the per-qubit level that reads out as 1 in
the measurement basis; every other level reads out as 0. Weights are
normalized so drawing from them is well defined even after numerical
drift.
*/
func (s *QuantumState) outcomeWeights(oneIndex int) []float64 {
	probs := s.basisProbabilities()
	weights := make([]float64, 1<<s.Qubits)
	total := 0.0
	for i, p := range probs {
		if p == 0 {
			continue
		}
		// Map the base-dim digits of i onto measurement bits.
		bits := 0
		rest := i
		for q := s.Qubits - 1; q >= 0; q-- {
			if rest%s.Dim == oneIndex {
				bits |= 1 << (s.Qubits - 1 - q)
			}
			rest /= s.Dim
		}
		weights[bits] += p
		total += p
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	}
	return weights
}

// drawOutcome samples one bitstring index from weights.
func drawOutcome(weights []float64, rng *rand.Rand) int {
	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

// bitstring renders outcome as an n-bit string, qubit 0 first.
func bitstring(outcome, n int) string {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		if outcome&(1<<(n-1-i)) != 0 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
