package pulsim

import (
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// HamiltonianTerm pairs one operator with its coefficient series on the
// coarse time grid.
type HamiltonianTerm struct {
	Op     *mat.CDense
	Coeffs []complex128
}

/*
Hamiltonian is the compressed time-dependent generator handed to the
propagator: a list of (operator, coefficient-series) pairs sharing one
coarse time grid in µs. Hermiticity is enforced after assembly by adding
the adjoint of the whole sum, so individual driving terms are listed in
lowering- or raising-operator form only.
*/
type Hamiltonian struct {
	terms []HamiltonianTerm
	times []float64
	dim   int
}

// Terms returns the operator/coefficient pairs of the generator.
func (h *Hamiltonian) Terms() []HamiltonianTerm { return h.terms }

// Times returns the coarse time grid in µs.
func (h *Hamiltonian) Times() []float64 { return h.times }

// Dim returns the full Hilbert-space dimension.
func (h *Hamiltonian) Dim() int { return h.dim }

/*
At evaluates the generator at time t (µs), interpolating coefficients
linearly between grid points. Times outside the grid clamp to its ends;
finer interpolation during integration is the propagator's business.
*/
func (h *Hamiltonian) At(t float64) *mat.CDense {
	out := zeros(h.dim, h.dim)
	for _, term := range h.terms {
		if c := interpC(h.times, term.Coeffs, t); c != 0 {
			addTo(out, scaled(c, term.Op))
		}
	}
	return out
}

func interpC(times []float64, coeffs []complex128, t float64) complex128 {
	n := len(times)
	if t <= times[0] {
		return coeffs[0]
	}
	if t >= times[n-1] {
		return coeffs[n-1]
	}
	for i := 1; i < n; i++ {
		if t <= times[i] {
			w := (t - times[i-1]) / (times[i] - times[i-1])
			return coeffs[i-1] + complex(w, 0)*(coeffs[i]-coeffs[i-1])
		}
	}
	return coeffs[n-1]
}

// addAdjoint appends the adjoint of every term, restoring Hermiticity for
// terms that were only specified one-sided.
func (h *Hamiltonian) addAdjoint() {
	orig := h.terms
	for _, term := range orig {
		conj := make([]complex128, len(term.Coeffs))
		for i, c := range term.Coeffs {
			conj[i] = cmplx.Conj(c)
		}
		h.terms = append(h.terms, HamiltonianTerm{Op: adjoint(term.Op), Coeffs: conj})
	}
}

// compress merges terms sharing the same operator by summing their
// coefficient series.
func (h *Hamiltonian) compress() {
	merged := make([]HamiltonianTerm, 0, len(h.terms))
outer:
	for _, term := range h.terms {
		for i := range merged {
			if matEqual(merged[i].Op, term.Op) {
				for j := range merged[i].Coeffs {
					merged[i].Coeffs[j] += term.Coeffs[j]
				}
				continue outer
			}
		}
		merged = append(merged, term)
	}
	h.terms = merged
}

/*
samplingIndices picks floor(rate·duration) evenly spaced integer indices
over [0, duration). This is decimation, not interpolation; the propagator
interpolates between the surviving points.
*/
func samplingIndices(duration int, rate float64) ([]int, error) {
	if rate <= 0 || rate > 1 {
		return nil, fmt.Errorf("%w: rate %v", ErrBadSamplingRate, rate)
	}
	n := int(rate * float64(duration))
	if n < 4 {
		return nil, fmt.Errorf("%w: %d points", ErrBadSamplingRate, n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i * (duration - 1) / (n - 1)
	}
	return idx, nil
}

/*
hamiltonianBuilder assembles the interaction and driving terms of one
realization from the extracted samples and the register geometry. A fresh
builder runs per reconstruction; the operator cache it carries may be
shared across reconstructions of the same configuration.
*/
type hamiltonianBuilder struct {
	seq   *Sequence
	reg   *Register
	basis *basisSet
	cfg   SimConfig
	noise *noiseState
	table *sampleTable
	ops   *operatorBuilder
	idx   []int
	times []float64
}

func (b *hamiltonianBuilder) decimate(series []float64) []complex128 {
	out := make([]complex128, len(b.idx))
	for i, j := range b.idx {
		out[i] = complex(series[j], 0)
	}
	return out
}

func (b *hamiltonianBuilder) decimateC(series []complex128) []complex128 {
	out := make([]complex128, len(b.idx))
	for i, j := range b.idx {
		out[i] = series[j]
	}
	return out
}

func (b *hamiltonianBuilder) constSeries(v complex128) []complex128 {
	out := make([]complex128, len(b.idx))
	for i := range out {
		out[i] = v
	}
	return out
}

// vdwTerm is the Van der Waals coupling 0.5·C6/r⁶ on the Rydberg-occupied
// subspace of both qubits.
func (b *hamiltonianBuilder) vdwTerm(q1, q2 QubitID) (*mat.CDense, error) {
	dist := b.reg.Distance(q1, q2)
	u := 0.5 * b.seq.Device.InteractionCoeff / math.Pow(dist, 6)
	op, err := b.ops.Build([]Operation{{Operator: "sigma_rr", Targets: []QubitID{q1, q2}}})
	if err != nil {
		return nil, err
	}
	return scaled(complex(u, 0), op), nil
}

// xyTerm is the dipole-dipole coupling 0.5·C3·(1-3cos²θ)/r³ as a
// raising⊗lowering pair, θ measured against the external magnetic field.
func (b *hamiltonianBuilder) xyTerm(q1, q2 QubitID) (*mat.CDense, error) {
	diff := r3.Sub(b.reg.Position(q1), b.reg.Position(q2))
	dist := r3.Norm(diff)
	mag := b.seq.MagneticField
	cosine := 0.0
	if magNorm := r3.Norm(mag); magNorm >= 1e-8 {
		cosine = r3.Dot(diff, mag) / (dist * magNorm)
	}
	u := 0.5 * b.seq.Device.InteractionCoeffXY * (1 - 3*cosine*cosine) / math.Pow(dist, 3)
	op, err := b.ops.Build([]Operation{
		{Operator: "sigma_du", Targets: []QubitID{q1}},
		{Operator: "sigma_ud", Targets: []QubitID{q2}},
	})
	if err != nil {
		return nil, err
	}
	return scaled(complex(u, 0), op), nil
}

/*
interactionTerm sums the pair couplings over every unordered pair whose
atoms both prepared correctly. In the masked variant, pairs touching the
SLM target set are excluded as well; if that leaves fewer than two good
unmasked qubits the term is identically zero.
*/
func (b *hamiltonianBuilder) interactionTerm(masked bool) (*mat.CDense, error) {
	full := intPow(b.basis.dim, b.reg.Size())
	sum := zeros(full, full)

	if masked {
		effective := b.noise.goodAtoms()
		for _, q := range b.seq.Mask.Targets {
			if !b.noise.badAtoms[q] {
				effective--
			}
		}
		if effective < 2 {
			return sum, nil
		}
	}

	ids := b.reg.IDs()
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			q1, q2 := ids[i], ids[j]
			if b.noise.badAtoms[q1] || b.noise.badAtoms[q2] {
				continue
			}
			if masked && (b.seq.Masked(q1) || b.seq.Masked(q2)) {
				continue
			}
			var term *mat.CDense
			var err error
			if b.basis.name == SystemXY {
				term, err = b.xyTerm(q1, q2)
			} else {
				term, err = b.vdwTerm(q1, q2)
			}
			if err != nil {
				return nil, err
			}
			addTo(sum, term)
		}
	}
	return sum, nil
}

// driveOpIDs are the lowering and projector operators a basis' drive
// couples to; the ordering matches the (amp, det) coefficient pair.
func driveOpIDs(basis DriveBasis) [2]string {
	switch basis {
	case BasisGroundRydberg:
		return [2]string{"sigma_gr", "sigma_rr"}
	case BasisDigital:
		return [2]string{"sigma_hg", "sigma_gg"}
	default:
		return [2]string{"sigma_du", "sigma_dd"}
	}
}

func driveCoeffs(s *seriesTriple) [2][]complex128 {
	n := len(s.amp)
	amp := make([]complex128, n)
	det := make([]complex128, n)
	for i := 0; i < n; i++ {
		amp[i] = complex(0.5*s.amp[i], 0) * cmplx.Exp(complex(0, -s.phase[i]))
		det[i] = complex(-0.5*s.det[i], 0)
	}
	return [2][]complex128{amp, det}
}

func anyNonZero(series []complex128) bool {
	for _, v := range series {
		if v != 0 {
			return true
		}
	}
	return false
}

/*
driveTerms builds the coefficient/operator pairs of one (addressing,
basis) sample set. Global entries share one summed operator, reused via
the cache; Local entries get one operator pair per qubit. All-zero series
are dropped before any operator is built.
*/
func (b *hamiltonianBuilder) driveTerms(addr Addressing, basis DriveBasis) ([]HamiltonianTerm, error) {
	opIDs := driveOpIDs(basis)
	var terms []HamiltonianTerm

	if addr == AddrGlobal {
		s := b.table.global[basis]
		if s == nil {
			return nil, nil
		}
		for i, coeff := range driveCoeffs(s) {
			if !anyNonZero(coeff) {
				continue
			}
			key := operatorKey{Addr: AddrGlobal, Basis: basis, Op: opIDs[i]}
			op, err := b.ops.buildCached(key, []Operation{{Operator: opIDs[i], Global: true}})
			if err != nil {
				return nil, err
			}
			terms = append(terms, HamiltonianTerm{Op: op, Coeffs: b.decimateC(coeff)})
		}
		return terms, nil
	}

	for _, q := range b.reg.IDs() {
		s, ok := b.table.local[basis][q]
		if !ok {
			continue
		}
		for i, coeff := range driveCoeffs(s) {
			if !anyNonZero(coeff) {
				continue
			}
			key := operatorKey{Addr: AddrLocal, Basis: basis, Qubit: q, Op: opIDs[i]}
			op, err := b.ops.buildCached(key, []Operation{{Operator: opIDs[i], Targets: []QubitID{q}}})
			if err != nil {
				return nil, err
			}
			terms = append(terms, HamiltonianTerm{Op: op, Coeffs: b.decimateC(coeff)})
		}
	}
	return terms, nil
}

/*
build assembles the full generator: the (possibly mask-gated) interaction
term, every driving term with non-empty samples, the zero operator when
nothing remains, then the Hermiticity-restoring adjoint and the final
compression pass.
*/
func (b *hamiltonianBuilder) build() (*Hamiltonian, error) {
	full := intPow(b.basis.dim, b.reg.Size())
	var terms []HamiltonianTerm

	if b.basis.name != SystemDigital && b.noise.goodAtoms() > 1 {
		if b.seq.Mask != nil && b.seq.MaskEnd() > 0 {
			// Two complementary 0/1 step gates: the full interaction
			// outside the mask window, the reduced set inside it.
			outside := make([]float64, b.seq.Duration)
			for i := range outside {
				if i >= b.seq.MaskEnd() {
					outside[i] = 1
				}
			}
			inside := make([]float64, b.seq.Duration)
			for i := range inside {
				inside[i] = 1 - outside[i]
			}
			unmasked, err := b.interactionTerm(false)
			if err != nil {
				return nil, err
			}
			maskedOp, err := b.interactionTerm(true)
			if err != nil {
				return nil, err
			}
			terms = append(terms,
				HamiltonianTerm{Op: unmasked, Coeffs: b.decimate(outside)},
				HamiltonianTerm{Op: maskedOp, Coeffs: b.decimate(inside)},
			)
		} else {
			op, err := b.interactionTerm(false)
			if err != nil {
				return nil, err
			}
			terms = append(terms, HamiltonianTerm{Op: op, Coeffs: b.constSeries(1)})
		}
	}

	for _, addr := range []Addressing{AddrGlobal, AddrLocal} {
		for _, basis := range []DriveBasis{BasisGroundRydberg, BasisDigital, BasisXY} {
			dt, err := b.driveTerms(addr, basis)
			if err != nil {
				return nil, err
			}
			terms = append(terms, dt...)
		}
	}

	if len(terms) == 0 {
		terms = []HamiltonianTerm{{Op: zeros(full, full), Coeffs: b.constSeries(0)}}
	}

	h := &Hamiltonian{terms: terms, times: b.times, dim: full}
	h.addAdjoint()
	h.compress()
	return h, nil
}

/*
buildCollapseOps builds the fixed first-order phase-damping channel used
under dephasing noise: √((1-p)ⁿ)·I plus √(p(1-p)ⁿ⁻¹)·(σ_rr-σ_gg) per
qubit, with p half the configured phase-flip probability.
*/
func buildCollapseOps(cfg SimConfig, reg *Register, ops *operatorBuilder) ([]*mat.CDense, error) {
	prob := cfg.DephasingProb / 2
	n := reg.Size()
	if prob > 0.1 && n > 1 {
		log.Printf(
			"dephasing probability %v is too large for the first-order approximation to be reliable",
			2*prob,
		)
	}

	identity, err := ops.Build([]Operation{{Operator: "I", Targets: reg.IDs()}})
	if err != nil {
		return nil, err
	}
	collapse := []*mat.CDense{
		scaled(complex(math.Sqrt(math.Pow(1-prob, float64(n))), 0), identity),
	}

	k := math.Sqrt(prob * math.Pow(1-prob, float64(n-1)))
	for _, q := range reg.IDs() {
		rr, err := ops.Build([]Operation{{Operator: "sigma_rr", Targets: []QubitID{q}}})
		if err != nil {
			return nil, err
		}
		gg, err := ops.Build([]Operation{{Operator: "sigma_gg", Targets: []QubitID{q}}})
		if err != nil {
			return nil, err
		}
		addTo(rr, scaled(-1, gg))
		collapse = append(collapse, scaled(complex(k, 0), rr))
	}
	return collapse, nil
}
