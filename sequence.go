package pulsim

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// QubitID identifies a qubit in the external register.
type QubitID string

// Addressing is the addressing mode of a channel.
type Addressing string

const (
	AddrGlobal Addressing = "Global"
	AddrLocal  Addressing = "Local"
)

// DriveBasis is the logical sub-basis a channel drives.
type DriveBasis string

const (
	BasisGroundRydberg DriveBasis = "ground-rydberg"
	BasisDigital       DriveBasis = "digital"
	BasisXY            DriveBasis = "XY"
)

// Pulse carries the per-nanosecond waveforms of a scheduled pulse.
// Amplitude and detuning are in rad/µs, one sample per ns.
type Pulse struct {
	Amplitude []float64
	Detuning  []float64
	Phase     float64
}

// TimeSlot is one entry of a channel schedule. A nil Pulse is a delay.
type TimeSlot struct {
	Ti      int
	Tf      int
	Pulse   *Pulse
	Targets []QubitID
}

// ChannelSchedule is the ordered list of slots of one drive channel.
type ChannelSchedule struct {
	Name       string
	Addressing Addressing
	Basis      DriveBasis
	Slots      []TimeSlot
}

// Qubit is one entry of the external registry; Pos is in µm.
type Qubit struct {
	ID  QubitID
	Pos r3.Vec
}

// Device holds the interaction coefficients of the device the sequence
// was built for. Both include the 1/hbar factor: C6 in rad·µm⁶/µs,
// C3 in rad·µm³/µs.
type Device struct {
	InteractionCoeff   float64
	InteractionCoeffXY float64
}

// SLMMask excludes its target qubits from the global drive on [0, End) ns.
type SLMMask struct {
	Targets []QubitID
	End     int
}

/*
Sequence is the already-validated pulse schedule consumed by the simulation.
It exposes the qubit registry in iteration order, the per-channel scheduled
slots, the total duration in ns, the device interaction coefficients, the
magnetic field and the optional SLM mask. It is read-only as far as this
package is concerned.
*/
type Sequence struct {
	Qubits        []Qubit
	Channels      []ChannelSchedule
	Duration      int
	Device        Device
	MagneticField r3.Vec
	Mask          *SLMMask
	MinDuration   int
	Measurement   string
}

// InXY reports whether the sequence drives the XY (microwave) basis.
// A sequence mixes XY with other bases only if malformed upstream.
func (s *Sequence) InXY() bool {
	for _, ch := range s.Channels {
		if ch.Basis == BasisXY {
			return true
		}
	}
	return false
}

// HasInstructions reports whether any channel schedule extends past t=0.
func (s *Sequence) HasInstructions() bool {
	for _, ch := range s.Channels {
		if n := len(ch.Slots); n > 0 && ch.Slots[n-1].Tf > 0 {
			return true
		}
	}
	return false
}

// Masked reports whether the SLM mask covers qubit q.
func (s *Sequence) Masked(q QubitID) bool {
	if s.Mask == nil {
		return false
	}
	for _, t := range s.Mask.Targets {
		if t == q {
			return true
		}
	}
	return false
}

// MaskEnd returns the end of the SLM mask window in ns, or 0 when no mask
// was defined.
func (s *Sequence) MaskEnd() int {
	if s.Mask == nil {
		return 0
	}
	return s.Mask.End
}
