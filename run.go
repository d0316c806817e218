package pulsim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/theapemachine/errnie"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// prepConfig is one distinct state-preparation outcome and how many of
// the drawn runs produced it.
type prepConfig struct {
	bits string
	reps int
}

/*
Run simulates the sequence under the active configuration. The noise
composition decides the strategy:

  - noise within {dephasing}, or SPAM with zero error probability: the
    Hamiltonian is deterministic, one solve returns the coherent
    trajectory untouched.
  - noise within {dephasing, SPAM} with a positive preparation error:
    the only stochastic input is state preparation, so distinct
    preparation outcomes are deduplicated and solved once each, weighted
    by multiplicity.
  - any Doppler or amplitude noise: the Hamiltonian itself is stochastic
    and every realization redraws noise, re-extracts samples and
    rebuilds from scratch.
*/
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	opts := s.cfg.SolverOptions
	if opts.MaxStep == 0 && s.seq.MinDuration > 0 {
		opts.MaxStep = 0.5 * float64(s.seq.MinDuration) / 1000
	}

	var measErr *MeasurementErrors
	if s.cfg.HasNoise(NoiseSPAM) {
		measErr = &MeasurementErrors{Epsilon: s.cfg.Epsilon, EpsilonPrime: s.cfg.EpsilonPrime}
		if s.cfg.Eta > 0 {
			ground := allGroundState(s.basis, s.reg.Size())
			if !s.initial.equalsVector(ground.Vector) {
				return nil, ErrSPAMInitialState
			}
		}
	}

	errnie.Info("Run - noise %v, runs %d, samples per run %d",
		s.cfg.Noise, s.cfg.Runs, s.cfg.SamplesPerRun)

	if s.cfg.NoiseWithin(NoiseDephasing, NoiseSPAM) {
		if !s.cfg.HasNoise(NoiseSPAM) || s.cfg.Eta == 0 {
			res, err := s.solve(ctx, s.ham, opts, measErr)
			if err != nil {
				return nil, err
			}
			s.metrics.recordRealizations(1)
			return res, nil
		}
		return s.runPreparationSampling(ctx, opts, measErr)
	}
	return s.runStochastic(ctx, opts, measErr)
}

// solve drives the propagator once over the evaluation times.
func (s *Simulation) solve(ctx context.Context, ham *Hamiltonian, opts SolverOptions, measErr *MeasurementErrors) (*CoherentResult, error) {
	start := time.Now()
	states, err := s.prop.Evolve(ctx, EvolveRequest{
		Hamiltonian:  ham,
		InitialState: s.initial,
		EvalTimes:    s.evalTimes,
		CollapseOps:  s.collapse,
		Options:      opts,
	})
	if err != nil {
		return nil, fmt.Errorf("propagator: %w", err)
	}
	if len(states) != len(s.evalTimes) {
		return nil, fmt.Errorf("propagator returned %d states for %d evaluation times",
			len(states), len(s.evalTimes))
	}
	s.metrics.recordSolve(start)
	return &CoherentResult{
		States:     states,
		EvalTimes:  s.evalTimes,
		Basis:      s.basisName,
		MeasBasis:  s.measBasis,
		MeasErrors: measErr,
		bset:       s.basis,
	}, nil
}

/*
runPreparationSampling handles the case where state preparation is the
only stochastic input: it draws the configured number of Bernoulli(η)
preparation bitstrings, deduplicates them, and solves once per distinct
configuration, weighting each contribution by its multiplicity.
*/
func (s *Simulation) runPreparationSampling(ctx context.Context, opts SolverOptions, measErr *MeasurementErrors) (Result, error) {
	configs := s.drawPrepConfigs()
	total := make([]OutcomeCounter, len(s.evalTimes))
	for i := range total {
		total[i] = make(OutcomeCounter)
	}

	for _, pc := range configs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ns := newNoiseState(s.reg)
		ns.setBadAtoms(s.reg, pc.bits)
		ham, _, err := s.construct(ns, s.rng, s.cache)
		if err != nil {
			return nil, err
		}
		res, err := s.solve(ctx, ham, opts, measErr)
		if err != nil {
			return nil, err
		}
		n := s.cfg.SamplesPerRun * pc.reps
		for ti := range s.evalTimes {
			total[ti].addCounts(res.SampleState(ti, n, s.rng))
		}
	}

	s.metrics.recordRealizations(int64(s.cfg.Runs))
	return s.normalize(total), nil
}

/*
runStochastic handles the fully stochastic case: every realization
redraws the noise state, re-extracts samples and rebuilds the Hamiltonian
before solving. Realizations are independent, so they run on a bounded
worker pool, each with its own derived rand stream and operator cache.
*/
func (s *Simulation) runStochastic(ctx context.Context, opts SolverOptions, measErr *MeasurementErrors) (Result, error) {
	jobs := make([]realizationJob, s.cfg.Runs)
	for i := range jobs {
		seed := s.seed + uint64(i) + 1
		jobs[i] = realizationJob{
			Index: i,
			Fn: func() ([]OutcomeCounter, error) {
				rng := rand.New(rand.NewSource(seed))
				ns := newNoiseState(s.reg)
				ns.update(s.cfg, s.reg, rng)
				ham, _, err := s.construct(ns, rng, newOperatorCache())
				if err != nil {
					return nil, err
				}
				res, err := s.solve(ctx, ham, opts, measErr)
				if err != nil {
					return nil, err
				}
				counts := make([]OutcomeCounter, len(s.evalTimes))
				for ti := range s.evalTimes {
					counts[ti] = res.SampleState(ti, s.cfg.SamplesPerRun, rng)
				}
				return counts, nil
			},
		}
	}

	pool := newRealizationPool(s.cfg.Workers)
	total, err := pool.run(ctx, jobs, len(s.evalTimes))
	if err != nil {
		return nil, err
	}
	s.metrics.recordRealizations(int64(s.cfg.Runs))
	return s.normalize(total), nil
}

// drawPrepConfigs draws the runs' preparation bitstrings and collapses
// them into distinct (configuration, multiplicity) pairs, most common
// first.
func (s *Simulation) drawPrepConfigs() []prepConfig {
	prep := distuv.Bernoulli{P: s.cfg.Eta, Src: s.rng}
	counts := make(map[string]int)
	n := s.reg.Size()
	for i := 0; i < s.cfg.Runs; i++ {
		bits := make([]byte, n)
		for j := range bits {
			if prep.Rand() == 1 {
				bits[j] = '1'
			} else {
				bits[j] = '0'
			}
		}
		counts[string(bits)]++
	}

	configs := make([]prepConfig, 0, len(counts))
	for bits, reps := range counts {
		configs = append(configs, prepConfig{bits: bits, reps: reps})
	}
	sort.Slice(configs, func(i, j int) bool {
		if configs[i].reps != configs[j].reps {
			return configs[i].reps > configs[j].reps
		}
		return configs[i].bits < configs[j].bits
	})
	return configs
}

// normalize turns accumulated counts into per-time outcome probabilities.
func (s *Simulation) normalize(total []OutcomeCounter) *NoisyResult {
	measures := s.cfg.Runs * s.cfg.SamplesPerRun
	probs := make([]OutcomeCounter, len(total))
	for ti, counts := range total {
		probs[ti] = make(OutcomeCounter, len(counts))
		for k, v := range counts {
			probs[ti][k] = v / float64(measures)
		}
	}
	return &NoisyResult{
		Probabilities: probs,
		EvalTimes:     s.evalTimes,
		Basis:         s.basisName,
		Measurements:  measures,
	}
}
