package pulsim

import (
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

/*
Simulation turns a pulse sequence into a time-dependent Hamiltonian and
drives the external propagator over it, under the configured noise model.
Construction freezes the register, the basis classification and the
coarse time grid; SetConfig and Run must not be called concurrently with
an in-flight Run.
*/
type Simulation struct {
	seq  *Sequence
	prop Propagator
	reg  *Register
	xy   bool

	samplingRate  float64
	idx           []int
	samplingTimes []float64 // µs

	basisName SystemBasis
	basis     *basisSet
	measBasis string

	cfg      SimConfig
	noise    *noiseState
	table    *sampleTable
	ham      *Hamiltonian
	collapse []*mat.CDense
	cache    *operatorCache

	initial   *QuantumState
	evalSpec  EvalSpec
	evalTimes []float64 // µs

	seed    uint64
	rng     *rand.Rand
	metrics *Metrics
}

// SimOption configures a Simulation at construction.
type SimOption func(*Simulation)

// WithSamplingRate sets the fraction of the per-ns samples kept on the
// coarse time grid.
func WithSamplingRate(rate float64) SimOption {
	return func(s *Simulation) { s.samplingRate = rate }
}

// WithConfig sets the initial configuration.
func WithConfig(cfg SimConfig) SimOption {
	return func(s *Simulation) { s.cfg = cfg }
}

// WithEvalTimes sets the evaluation-time specification.
func WithEvalTimes(spec EvalSpec) SimOption {
	return func(s *Simulation) { s.evalSpec = spec }
}

// WithSeed fixes the root seed of every stochastic draw, making runs
// reproducible. Realizations derive their own streams from it.
func WithSeed(seed uint64) SimOption {
	return func(s *Simulation) { s.seed = seed }
}

// NewSimulation validates the sequence and builds the initial
// Hamiltonian under the configured (default: noiseless) model.
func NewSimulation(seq *Sequence, prop Propagator, opts ...SimOption) (*Simulation, error) {
	if seq == nil || len(seq.Channels) == 0 || !seq.HasInstructions() {
		return nil, ErrEmptySequence
	}

	s := &Simulation{
		seq:          seq,
		prop:         prop,
		reg:          newRegister(seq.Qubits),
		xy:           seq.InXY(),
		samplingRate: 1.0,
		cfg:          DefaultSimConfig(),
		evalSpec:     EvalFull(),
		seed:         uint64(time.Now().UnixNano()),
		metrics:      newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed))

	var err error
	if s.idx, err = samplingIndices(seq.Duration, s.samplingRate); err != nil {
		return nil, err
	}
	s.samplingTimes = make([]float64, len(s.idx))
	for i, j := range s.idx {
		s.samplingTimes[i] = float64(j) / 1000
	}

	s.basisName = classifyBasis(seq)
	s.basis = newBasisSet(s.basisName)
	s.cache = newOperatorCache()
	s.noise = newNoiseState(s.reg)
	s.measBasis = seq.Measurement
	if s.measBasis == "" {
		if s.basisName == SystemDigital || s.basisName == SystemAll {
			s.measBasis = string(SystemDigital)
		} else {
			s.measBasis = string(s.basisName)
		}
	}

	if err := s.setEvalTimes(s.evalSpec); err != nil {
		return nil, err
	}

	cfg := s.cfg
	s.cfg = SimConfig{}
	if err := s.SetConfig(cfg); err != nil {
		return nil, err
	}
	s.initial = allGroundState(s.basis, s.reg.Size())

	log.Printf("simulation ready: %d qubits, basis %s, %d grid points",
		s.reg.Size(), s.basisName, len(s.samplingTimes))
	return s, nil
}

// Config returns the active configuration.
func (s *Simulation) Config() SimConfig { return s.cfg }

// Register returns the qubit register.
func (s *Simulation) Register() *Register { return s.reg }

// Basis returns the classified system basis.
func (s *Simulation) Basis() SystemBasis { return s.basisName }

// EvalTimes returns the evaluation times in µs.
func (s *Simulation) EvalTimes() []float64 { return s.evalTimes }

// Metrics returns the run statistics.
func (s *Simulation) Metrics() MetricsSnapshot { return s.metrics.Snapshot() }

/*
SetConfig adopts a new configuration and synchronously rebuilds the
Hamiltonian. The candidate is validated in full before any state is
touched, so a rejected config leaves the previous one active.
*/
func (s *Simulation) SetConfig(cfg SimConfig) error {
	if err := validateNoise(cfg, s.xy); err != nil {
		return err
	}
	if cfg.HasNoise(NoiseDephasing) &&
		(s.basisName == SystemDigital || s.basisName == SystemAll) {
		return fmt.Errorf("%w: basis %s", ErrDephasingBasis, s.basisName)
	}
	normalizeConfig(&cfg)

	s.cfg = cfg
	s.cache.invalidate()
	if err := s.rebuild(true); err != nil {
		return err
	}

	s.collapse = nil
	if cfg.HasNoise(NoiseDephasing) {
		ops := &operatorBuilder{reg: s.reg, basis: s.basis, cache: s.cache}
		collapse, err := buildCollapseOps(cfg, s.reg, ops)
		if err != nil {
			return err
		}
		s.collapse = collapse
	}
	return nil
}

// AddConfig merges another configuration into the active one: the union
// of the noise sets, with parameters of newly added noise types taken
// from cfg and existing ones kept.
func (s *Simulation) AddConfig(cfg SimConfig) error {
	if err := validateNoise(cfg, s.xy); err != nil {
		return err
	}
	return s.SetConfig(mergeConfig(s.cfg, cfg))
}

// ResetConfig restores the default configuration.
func (s *Simulation) ResetConfig() error {
	return s.SetConfig(DefaultSimConfig())
}

func normalizeConfig(cfg *SimConfig) {
	def := DefaultSimConfig()
	if cfg.Runs < 1 {
		cfg.Runs = def.Runs
	}
	if cfg.SamplesPerRun < 1 {
		cfg.SamplesPerRun = def.SamplesPerRun
	}
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
}

// rebuild re-extracts samples and reassembles the Hamiltonian, redrawing
// the noise state first when asked to.
func (s *Simulation) rebuild(redraw bool) error {
	if redraw {
		s.noise.update(s.cfg, s.reg, s.rng)
	}
	ham, table, err := s.construct(s.noise, s.rng, s.cache)
	if err != nil {
		return err
	}
	s.ham, s.table = ham, table
	return nil
}

// construct runs sample extraction and Hamiltonian assembly against an
// explicit noise state, rand source and operator cache, so stochastic
// realizations can bring their own.
func (s *Simulation) construct(ns *noiseState, rng *rand.Rand, cache *operatorCache) (*Hamiltonian, *sampleTable, error) {
	extractor := &sampleExtractor{seq: s.seq, reg: s.reg, cfg: s.cfg, noise: ns, src: rng}
	table := extractor.extract()
	builder := &hamiltonianBuilder{
		seq:   s.seq,
		reg:   s.reg,
		basis: s.basis,
		cfg:   s.cfg,
		noise: ns,
		table: table,
		ops:   &operatorBuilder{reg: s.reg, basis: s.basis, cache: cache},
		idx:   s.idx,
		times: s.samplingTimes,
	}
	ham, err := builder.build()
	if err != nil {
		return nil, nil, err
	}
	return ham, table, nil
}

// BuildOperator builds an N-qubit tensor-product operator from local
// operator placements in the active basis.
func (s *Simulation) BuildOperator(operations []Operation) (*mat.CDense, error) {
	b := &operatorBuilder{reg: s.reg, basis: s.basis, cache: s.cache}
	return b.Build(operations)
}

// GetHamiltonian evaluates the generator at a fixed time in ns.
func (s *Simulation) GetHamiltonian(timeNs float64) (*mat.CDense, error) {
	if timeNs < 0 || timeNs > float64(s.seq.Duration) {
		return nil, fmt.Errorf("%w: %v ns outside [0, %d]", ErrTimeOutOfRange, timeNs, s.seq.Duration)
	}
	return s.ham.At(timeNs / 1000), nil
}

// Hamiltonian returns the current generator.
func (s *Simulation) Hamiltonian() *Hamiltonian { return s.ham }

// CollapseOps returns the dephasing collapse operators, nil without
// dephasing noise.
func (s *Simulation) CollapseOps() []*mat.CDense { return s.collapse }

// InitialState returns the state the evolution starts from.
func (s *Simulation) InitialState() *QuantumState { return s.initial }

// SetInitialVector sets an explicit initial state vector.
func (s *Simulation) SetInitialVector(vec []complex128) error {
	st, err := newVectorState(vec, s.basis, s.reg.Size())
	if err != nil {
		return err
	}
	s.initial = st
	return nil
}

// SetInitialDensity sets an explicit initial density operator.
func (s *Simulation) SetInitialDensity(rho *mat.CDense) error {
	st, err := newDensityState(rho, s.basis, s.reg.Size())
	if err != nil {
		return err
	}
	s.initial = st
	return nil
}

// ResetInitialState restores the all-ground initial state.
func (s *Simulation) ResetInitialState() {
	s.initial = allGroundState(s.basis, s.reg.Size())
}

// EvalSpec selects the evaluation times of a run.
type EvalSpec struct {
	kind     evalKind
	fraction float64
	times    []float64
}

type evalKind int

const (
	evalFull evalKind = iota
	evalMinimal
	evalFraction
	evalList
)

// EvalFull evaluates at every coarse grid time.
func EvalFull() EvalSpec { return EvalSpec{kind: evalFull} }

// EvalMinimal evaluates at the initial and final times only.
func EvalMinimal() EvalSpec { return EvalSpec{kind: evalMinimal} }

// EvalFraction keeps the given fraction of the full evaluation set.
func EvalFraction(f float64) EvalSpec {
	return EvalSpec{kind: evalFraction, fraction: f}
}

// EvalAt evaluates at the given times in µs.
func EvalAt(times ...float64) EvalSpec {
	return EvalSpec{kind: evalList, times: times}
}

// SetEvalTimes replaces the evaluation-time specification.
func (s *Simulation) SetEvalTimes(spec EvalSpec) error {
	return s.setEvalTimes(spec)
}

func (s *Simulation) setEvalTimes(spec EvalSpec) error {
	end := float64(s.seq.Duration) / 1000
	switch spec.kind {
	case evalFull:
		s.evalTimes = append(append([]float64(nil), s.samplingTimes...), end)
	case evalMinimal:
		s.evalTimes = []float64{s.samplingTimes[0], end}
	case evalFraction:
		if spec.fraction <= 0 || spec.fraction > 1 {
			return fmt.Errorf("%w: fraction %v", ErrBadEvalTimes, spec.fraction)
		}
		extended := append(append([]float64(nil), s.samplingTimes...), end)
		n := int(spec.fraction * float64(len(extended)))
		if n < 1 {
			n = 1
		}
		times := make([]float64, 0, n+2)
		for i := 0; i < n; i++ {
			j := 0
			if n > 1 {
				j = i * (len(extended) - 1) / (n - 1)
			}
			times = append(times, extended[j])
		}
		s.evalTimes = augmentTimes(times, end)
	case evalList:
		times := append([]float64(nil), spec.times...)
		sort.Float64s(times)
		if len(times) == 0 {
			return fmt.Errorf("%w: empty time list", ErrBadEvalTimes)
		}
		if times[0] < 0 {
			return fmt.Errorf("%w: negative time %v", ErrBadEvalTimes, times[0])
		}
		if times[len(times)-1] > end {
			return fmt.Errorf("%w: time %v extends past the sequence duration", ErrBadEvalTimes, times[len(times)-1])
		}
		s.evalTimes = augmentTimes(times, end)
	default:
		return ErrBadEvalTimes
	}
	s.evalSpec = spec
	return nil
}

// augmentTimes makes sure t=0 and t=end are part of the evaluation set.
func augmentTimes(times []float64, end float64) []float64 {
	if times[0] > 0 {
		times = append([]float64{0}, times...)
	}
	if times[len(times)-1] < end {
		times = append(times, end)
	}
	return times
}

// SamplingTimes returns the coarse time grid in µs.
func (s *Simulation) SamplingTimes() []float64 { return s.samplingTimes }
