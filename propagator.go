package pulsim

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

/*
EvolveRequest is everything the external propagator needs for one solve:
the time-dependent generator, the initial state, the times to report
states at (µs, sorted, within the generator's grid span), the collapse
operators of the open-system correction (nil for closed evolution) and
the solver tuning options.
*/
type EvolveRequest struct {
	Hamiltonian  *Hamiltonian
	InitialState *QuantumState
	EvalTimes    []float64
	CollapseOps  []*mat.CDense
	Options      SolverOptions
}

/*
Propagator integrates the Schrödinger or Lindblad equation. It is an
external collaborator; this package only assembles its inputs and samples
its outputs. One state is returned per evaluation time. A long-running
solve is expected to run to completion; ctx is passed through so a
propagator implementation may honor cancellation, but none is required
for correctness.
*/
type Propagator interface {
	Evolve(ctx context.Context, req EvolveRequest) ([]*QuantumState, error)
}
