package pulsim

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

func TestSampleExtraction(t *testing.T) {
	Convey("Given a noiseless two-qubit sequence with a global channel", t, func() {
		seq := twoQubitSeq(1000, 10, 2.0, -1.0)
		reg := newRegister(seq.Qubits)
		cfg := DefaultSimConfig()
		src := rand.New(rand.NewSource(1))

		Convey("Extraction keeps one shared global entry", func() {
			e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: src}
			table := e.extract()

			So(table.global[BasisGroundRydberg], ShouldNotBeNil)
			So(table.local[BasisGroundRydberg], ShouldBeEmpty)
			So(table.global[BasisGroundRydberg].amp[0], ShouldEqual, 2.0)
			So(table.global[BasisGroundRydberg].amp[999], ShouldEqual, 2.0)
			So(table.global[BasisGroundRydberg].det[500], ShouldEqual, -1.0)
		})

		Convey("Overlapping slots accumulate additively", func() {
			seq.Channels = append(seq.Channels, ChannelSchedule{
				Name:       "rydberg_local",
				Addressing: AddrLocal,
				Basis:      BasisGroundRydberg,
				Slots: []TimeSlot{{
					Ti: 200, Tf: 400,
					Pulse:   constPulse(200, 1.5, 0, 0),
					Targets: []QubitID{"q0"},
				}},
			})
			e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: src}
			table := e.extract()

			entry := table.local[BasisGroundRydberg]["q0"]
			So(entry, ShouldNotBeNil)
			So(entry.amp[199], ShouldEqual, 0.0)
			So(entry.amp[300], ShouldEqual, 1.5)
			So(entry.amp[400], ShouldEqual, 0.0)
			// The global channel is untouched by the local slot.
			So(table.global[BasisGroundRydberg].amp[300], ShouldEqual, 2.0)
		})
	})

	Convey("Given an SLM mask over the first half of the sequence", t, func() {
		seq := twoQubitSeq(1000, 10, 2.0, 0)
		seq.Mask = &SLMMask{Targets: []QubitID{"q0"}, End: 500}
		reg := newRegister(seq.Qubits)
		src := rand.New(rand.NewSource(1))

		e := &sampleExtractor{seq: seq, reg: reg, cfg: DefaultSimConfig(), noise: newNoiseState(reg), src: src}
		table := e.extract()

		Convey("The global channel is demoted to per-qubit entries", func() {
			So(table.global[BasisGroundRydberg], ShouldBeNil)
			So(table.local[BasisGroundRydberg]["q0"], ShouldNotBeNil)
			So(table.local[BasisGroundRydberg]["q1"], ShouldNotBeNil)
		})

		Convey("The masked qubit sees nothing inside the mask window", func() {
			masked := table.local[BasisGroundRydberg]["q0"]
			So(masked.amp[0], ShouldEqual, 0.0)
			So(masked.amp[499], ShouldEqual, 0.0)
			So(masked.amp[500], ShouldEqual, 2.0)
			So(masked.amp[999], ShouldEqual, 2.0)
		})

		Convey("The unmasked qubit keeps the full pulse", func() {
			unmasked := table.local[BasisGroundRydberg]["q1"]
			So(unmasked.amp[0], ShouldEqual, 2.0)
			So(unmasked.amp[999], ShouldEqual, 2.0)
		})
	})

	Convey("Given a badly prepared atom under SPAM noise", t, func() {
		seq := twoQubitSeq(1000, 10, 2.0, 0)
		reg := newRegister(seq.Qubits)
		cfg := DefaultSimConfig()
		cfg.Noise = []NoiseType{NoiseSPAM}
		cfg.Eta = 0.5

		ns := newNoiseState(reg)
		ns.setBadAtoms(reg, "10")
		e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: ns, src: rand.New(rand.NewSource(1))}
		table := e.extract()

		Convey("The bad atom receives no drive samples", func() {
			So(table.global[BasisGroundRydberg], ShouldBeNil)
			bad := table.local[BasisGroundRydberg]["q0"]
			good := table.local[BasisGroundRydberg]["q1"]
			So(bad.amp[500], ShouldEqual, 0.0)
			So(good.amp[500], ShouldEqual, 2.0)
		})
	})

	Convey("Given Doppler noise with a known per-qubit detuning", t, func() {
		seq := twoQubitSeq(1000, 10, 2.0, -1.0)
		reg := newRegister(seq.Qubits)
		cfg := DefaultSimConfig()
		cfg.Noise = []NoiseType{NoiseDoppler}

		ns := newNoiseState(reg)
		ns.dopplerDetune["q0"] = 3.5
		ns.dopplerDetune["q1"] = -0.5
		e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: ns, src: rand.New(rand.NewSource(1))}
		table := e.extract()

		Convey("The offset adds onto every detuning sample", func() {
			So(table.local[BasisGroundRydberg]["q0"].det[500], ShouldEqual, 2.5)
			So(table.local[BasisGroundRydberg]["q1"].det[500], ShouldEqual, -1.5)
		})

		Convey("Amplitudes are untouched", func() {
			So(table.local[BasisGroundRydberg]["q0"].amp[500], ShouldEqual, 2.0)
			So(table.local[BasisGroundRydberg]["q1"].amp[500], ShouldEqual, 2.0)
		})
	})

	Convey("Given amplitude noise on a global channel", t, func() {
		// Qubits sit half a waist from the beam centre.
		cfg := DefaultSimConfig()
		cfg.Noise = []NoiseType{NoiseAmplitude}
		seq := twoQubitSeq(1000, cfg.LaserWaist, 2.0, -1.0)
		reg := newRegister(seq.Qubits)

		e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: rand.New(rand.NewSource(1))}
		table := e.extract()

		Convey("The Gaussian-beam factor damps the amplitude", func() {
			want := 2.0 * math.Exp(-0.25)
			So(table.local[BasisGroundRydberg]["q0"].amp[500], ShouldAlmostEqual, want, 0.05)
			So(table.local[BasisGroundRydberg]["q1"].amp[500], ShouldAlmostEqual, want, 0.05)
			// The factor is constant within a slot.
			entry := table.local[BasisGroundRydberg]["q0"]
			So(entry.amp[0], ShouldEqual, entry.amp[999])
		})

		Convey("Detunings are untouched", func() {
			So(table.local[BasisGroundRydberg]["q0"].det[500], ShouldEqual, -1.0)
		})

		Convey("Locally addressed pulses skip the beam factor", func() {
			seq.Channels[0].Addressing = AddrLocal
			e := &sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: rand.New(rand.NewSource(1))}
			local := e.extract()
			So(local.local[BasisGroundRydberg]["q0"].amp[500], ShouldEqual, 2.0)
		})
	})

	Convey("Noiseless extraction is deterministic across sources", t, func() {
		seq := twoQubitSeq(1000, 10, 2.0, -1.0)
		reg := newRegister(seq.Qubits)
		cfg := DefaultSimConfig()

		a := (&sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: rand.New(rand.NewSource(1))}).extract()
		b := (&sampleExtractor{seq: seq, reg: reg, cfg: cfg, noise: newNoiseState(reg), src: rand.New(rand.NewSource(99))}).extract()

		So(a.global[BasisGroundRydberg].amp, ShouldResemble, b.global[BasisGroundRydberg].amp)
		So(a.global[BasisGroundRydberg].det, ShouldResemble, b.global[BasisGroundRydberg].det)
	})
}

func TestNoiseState(t *testing.T) {
	Convey("Given a two-qubit register", t, func() {
		reg := newRegister([]Qubit{{ID: "q0"}, {ID: "q1"}})
		ns := newNoiseState(reg)

		Convey("The fresh state is neutral", func() {
			So(ns.goodAtoms(), ShouldEqual, 2)
			So(ns.dopplerDetune["q0"], ShouldEqual, 0.0)
		})

		Convey("A certain preparation failure flags every atom", func() {
			cfg := DefaultSimConfig()
			cfg.Noise = []NoiseType{NoiseSPAM}
			cfg.Eta = 1.0
			ns.update(cfg, reg, rand.New(rand.NewSource(7)))
			So(ns.goodAtoms(), ShouldEqual, 0)
		})

		Convey("Doppler noise draws a detuning per qubit", func() {
			cfg := DefaultSimConfig()
			cfg.Noise = []NoiseType{NoiseDoppler}
			ns.update(cfg, reg, rand.New(rand.NewSource(7)))
			So(ns.dopplerDetune["q0"], ShouldNotEqual, 0.0)
			So(ns.dopplerDetune["q1"], ShouldNotEqual, 0.0)

			Convey("And disabling it resets the state to neutral", func() {
				ns.update(SimConfig{}, reg, rand.New(rand.NewSource(7)))
				So(ns.dopplerDetune["q0"], ShouldEqual, 0.0)
				So(ns.goodAtoms(), ShouldEqual, 2)
			})
		})

		Convey("setBadAtoms follows register index order", func() {
			ns.setBadAtoms(reg, "01")
			So(ns.badAtoms["q0"], ShouldBeFalse)
			So(ns.badAtoms["q1"], ShouldBeTrue)
		})
	})
}
