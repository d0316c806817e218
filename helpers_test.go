package pulsim

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// constPulse builds a pulse with constant amplitude and detuning over
// duration ns.
func constPulse(duration int, amp, det, phase float64) *Pulse {
	p := &Pulse{
		Amplitude: make([]float64, duration),
		Detuning:  make([]float64, duration),
		Phase:     phase,
	}
	for i := 0; i < duration; i++ {
		p.Amplitude[i] = amp
		p.Detuning[i] = det
	}
	return p
}

// singleQubitSeq drives one qubit globally on the ground-rydberg basis
// with a constant pulse for the whole duration.
func singleQubitSeq(duration int, amp, det, phase float64) *Sequence {
	qubits := []Qubit{{ID: "q0", Pos: r3.Vec{}}}
	return &Sequence{
		Qubits: qubits,
		Channels: []ChannelSchedule{{
			Name:       "rydberg_global",
			Addressing: AddrGlobal,
			Basis:      BasisGroundRydberg,
			Slots: []TimeSlot{{
				Ti:      0,
				Tf:      duration,
				Pulse:   constPulse(duration, amp, det, phase),
				Targets: []QubitID{"q0"},
			}},
		}},
		Duration:    duration,
		Device:      Device{InteractionCoeff: 5420158.53},
		MinDuration: duration,
	}
}

// twoQubitSeq places two qubits sep µm apart, both driven by one global
// ground-rydberg channel.
func twoQubitSeq(duration int, sep, amp, det float64) *Sequence {
	qubits := []Qubit{
		{ID: "q0", Pos: r3.Vec{X: -sep / 2}},
		{ID: "q1", Pos: r3.Vec{X: sep / 2}},
	}
	return &Sequence{
		Qubits: qubits,
		Channels: []ChannelSchedule{{
			Name:       "rydberg_global",
			Addressing: AddrGlobal,
			Basis:      BasisGroundRydberg,
			Slots: []TimeSlot{{
				Ti:      0,
				Tf:      duration,
				Pulse:   constPulse(duration, amp, det, 0),
				Targets: []QubitID{"q0", "q1"},
			}},
		}},
		Duration:    duration,
		Device:      Device{InteractionCoeff: 5420158.53},
		MinDuration: duration,
	}
}

// xyTwoQubitSeq places two qubits sep µm apart on the x axis, driven by
// one global microwave channel under the given magnetic field.
func xyTwoQubitSeq(duration int, sep, amp, det float64, field r3.Vec) *Sequence {
	qubits := []Qubit{
		{ID: "q0", Pos: r3.Vec{X: -sep / 2}},
		{ID: "q1", Pos: r3.Vec{X: sep / 2}},
	}
	return &Sequence{
		Qubits: qubits,
		Channels: []ChannelSchedule{{
			Name:       "mw_global",
			Addressing: AddrGlobal,
			Basis:      BasisXY,
			Slots: []TimeSlot{{
				Ti:      0,
				Tf:      duration,
				Pulse:   constPulse(duration, amp, det, 0),
				Targets: []QubitID{"q0", "q1"},
			}},
		}},
		Duration:      duration,
		Device:        Device{InteractionCoeffXY: 3700},
		MagneticField: field,
		MinDuration:   duration,
	}
}

/*
echoPropagator returns the initial state unchanged at every evaluation
time. It is enough for tests that exercise orchestration and sampling
rather than dynamics.
*/
type echoPropagator struct{}

func (echoPropagator) Evolve(_ context.Context, req EvolveRequest) ([]*QuantumState, error) {
	states := make([]*QuantumState, len(req.EvalTimes))
	for i := range states {
		states[i] = req.InitialState
	}
	return states, nil
}

/*
rk4Propagator integrates the Schrödinger equation with a fixed-step
classical Runge-Kutta scheme, accurate enough to verify closed-system
dynamics against analytic expectations.
*/
type rk4Propagator struct {
	step float64 // µs
}

func (p *rk4Propagator) Evolve(_ context.Context, req EvolveRequest) ([]*QuantumState, error) {
	h := p.step
	if h <= 0 {
		h = 1e-3
	}

	psi := append([]complex128(nil), req.InitialState.Vector...)
	deriv := func(t float64, y []complex128) []complex128 {
		out := mulVec(req.Hamiltonian.At(t), y)
		for i := range out {
			out[i] *= complex(0, -1)
		}
		return out
	}
	shifted := func(y, k []complex128, scale float64) []complex128 {
		out := make([]complex128, len(y))
		for i := range y {
			out[i] = y[i] + complex(scale, 0)*k[i]
		}
		return out
	}

	states := make([]*QuantumState, 0, len(req.EvalTimes))
	t := 0.0
	for _, target := range req.EvalTimes {
		for target-t > 1e-12 {
			dt := math.Min(h, target-t)
			k1 := deriv(t, psi)
			k2 := deriv(t+dt/2, shifted(psi, k1, dt/2))
			k3 := deriv(t+dt/2, shifted(psi, k2, dt/2))
			k4 := deriv(t+dt, shifted(psi, k3, dt))
			for i := range psi {
				psi[i] += complex(dt/6, 0) * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
			}
			t += dt
		}
		states = append(states, &QuantumState{
			Vector: append([]complex128(nil), psi...),
			Dim:    req.InitialState.Dim,
			Qubits: req.InitialState.Qubits,
		})
	}
	return states, nil
}
