package pulsim

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// seriesTriple is one dense coefficient set, sampled once per ns over the
// whole sequence: amplitude, detuning and phase.
type seriesTriple struct {
	amp   []float64
	det   []float64
	phase []float64
}

func newSeriesTriple(duration int) *seriesTriple {
	return &seriesTriple{
		amp:   make([]float64, duration),
		det:   make([]float64, duration),
		phase: make([]float64, duration),
	}
}

/*
sampleTable maps (addressing × basis) to coefficient series: one shared
triple per basis for Global entries, one triple per qubit for Local
entries. Series accumulate additively over every schedule slot touching
them; anything outside a scheduled slot stays zero.
*/
type sampleTable struct {
	duration int
	global   map[DriveBasis]*seriesTriple
	local    map[DriveBasis]map[QubitID]*seriesTriple
}

func newSampleTable(duration int, xy bool) *sampleTable {
	bases := []DriveBasis{BasisGroundRydberg, BasisDigital}
	if xy {
		bases = []DriveBasis{BasisXY}
	}
	t := &sampleTable{
		duration: duration,
		global:   make(map[DriveBasis]*seriesTriple, len(bases)),
		local:    make(map[DriveBasis]map[QubitID]*seriesTriple, len(bases)),
	}
	for _, b := range bases {
		t.local[b] = make(map[QubitID]*seriesTriple)
	}
	return t
}

// localEntry returns the per-qubit triple for basis/q, creating it on
// first use.
func (t *sampleTable) localEntry(basis DriveBasis, q QubitID) *seriesTriple {
	entry, ok := t.local[basis][q]
	if !ok {
		entry = newSeriesTriple(t.duration)
		t.local[basis][q] = entry
	}
	return entry
}

/*
sampleExtractor turns the external schedule into a dense sampleTable,
injecting per-qubit noise as it writes. One extractor runs per Hamiltonian
construction; its rand source is the realization's own stream.
*/
type sampleExtractor struct {
	seq   *Sequence
	reg   *Register
	cfg   SimConfig
	noise *noiseState
	src   rand.Source
}

func (e *sampleExtractor) extract() *sampleTable {
	table := newSampleTable(e.seq.Duration, e.seq.InXY())

	for _, ch := range e.seq.Channels {
		// Coherent-global fast path: a globally addressed channel with at
		// most dephasing noise keeps one shared coefficient set, except
		// while the SLM mask is active, where the affected qubits are
		// demoted to their own Local entries.
		if ch.Addressing == AddrGlobal && e.cfg.NoiseWithin(NoiseDephasing) {
			slmOn := e.seq.Mask != nil && len(e.seq.Mask.Targets) > 0
			for _, slot := range ch.Slots {
				if slot.Pulse == nil {
					continue
				}
				if slmOn && e.seq.MaskEnd() > slot.Ti {
					for _, q := range slot.Targets {
						e.write(slot, table.localEntry(ch.Basis, q), true, q)
					}
				} else {
					slmOn = false
					dst, ok := table.global[ch.Basis]
					if !ok {
						dst = newSeriesTriple(e.seq.Duration)
						table.global[ch.Basis] = dst
					}
					e.write(slot, dst, true, "")
				}
			}
		} else {
			// General path: per-qubit noise breaks the global symmetry, so
			// every pulse lands in Local entries regardless of addressing.
			isGlobal := ch.Addressing == AddrGlobal
			for _, slot := range ch.Slots {
				if slot.Pulse == nil {
					continue
				}
				for _, q := range slot.Targets {
					dst := table.localEntry(ch.Basis, q)
					if !e.noise.badAtoms[q] {
						e.write(slot, dst, isGlobal, q)
					}
				}
			}
		}

		// The SLM mask overrides whatever path wrote the samples: masked
		// qubits see nothing on [0, maskEnd).
		if e.seq.Mask != nil && e.seq.MaskEnd() > 0 {
			end := min(e.seq.MaskEnd(), e.seq.Duration)
			for _, q := range e.seq.Mask.Targets {
				entry, ok := table.local[ch.Basis][q]
				if !ok {
					continue
				}
				for i := 0; i < end; i++ {
					entry.amp[i] = 0
					entry.det[i] = 0
					entry.phase[i] = 0
				}
			}
		}
	}
	return table
}

/*
write accumulates one pulse slot into dst, applying the qubit-local noise:
an additive Doppler offset on the detuning, and for globally addressed
pulses under amplitude noise a multiplicative Gaussian-beam factor
Normal(1, 1e-3)·exp(-(r/w0)²), redrawn once per slot per qubit.
*/
func (e *sampleExtractor) write(slot TimeSlot, dst *seriesTriple, isGlobal bool, q QubitID) {
	noiseDet := 0.0
	noiseAmp := 1.0
	if q != "" && e.cfg.HasNoise(NoiseDoppler) {
		noiseDet += e.noise.dopplerDetune[q]
	}
	if q != "" && isGlobal && e.cfg.HasNoise(NoiseAmplitude) {
		r := e.reg.CenterDistance(q)
		w0 := e.cfg.LaserWaist
		jitter := distuv.Normal{Mu: 1, Sigma: 1e-3, Src: e.src}
		noiseAmp = jitter.Rand() * math.Exp(-(r/w0)*(r/w0))
	}

	for t := slot.Ti; t < slot.Tf && t < len(dst.amp); t++ {
		dst.amp[t] += slot.Pulse.Amplitude[t-slot.Ti] * noiseAmp
		dst.det[t] += slot.Pulse.Detuning[t-slot.Ti] + noiseDet
		dst.phase[t] += slot.Pulse.Phase
	}
}
