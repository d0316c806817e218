package pulsim

import (
	"context"
	"log"
	"sync"
)

// realizationJob is one independent noise realization: solve and sample,
// returning per-evaluation-time outcome counts.
type realizationJob struct {
	Index int
	Fn    func() ([]OutcomeCounter, error)
}

type realizationResult struct {
	counts []OutcomeCounter
	err    error
}

/*
realizationPool fans independent noise realizations out to a bounded set
of workers and reduces their histograms additively. Realizations share no
mutable state beyond that final reduction; each one carries its own rand
source and operator cache, so the workers never contend on draws.
*/
type realizationPool struct {
	workers int
}

func newRealizationPool(workers int) *realizationPool {
	if workers < 1 {
		workers = 1
	}
	return &realizationPool{workers: workers}
}

/*
run executes every job and sums their histograms per evaluation time. The
first error cancels the remaining work and aborts the whole run.
*/
func (p *realizationPool) run(ctx context.Context, jobs []realizationJob, evalTimes int) ([]OutcomeCounter, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan realizationJob)
	results := make(chan realizationResult, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				select {
				case <-ctx.Done():
					return
				default:
				}
				counts, err := job.Fn()
				if err != nil {
					log.Printf("realization %d failed: %v", job.Index, err)
					results <- realizationResult{err: err}
					cancel()
					return
				}
				results <- realizationResult{counts: counts}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	total := make([]OutcomeCounter, evalTimes)
	for i := range total {
		total[i] = make(OutcomeCounter)
	}
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		for i, counts := range res.counts {
			total[i].addCounts(counts)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return total, nil
}
