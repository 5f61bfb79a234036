package optimizer

import (
	"sync"
	"time"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
	"github.com/paiban/edrota/pkg/scheduler/objective"
	"github.com/paiban/edrota/pkg/scheduler/solver"
)

// RaceConfig tunes the multi-seed race.
type RaceConfig struct {
	Races     int
	BaseSeed  int64
	Workers   int
	Solver    solver.Config
	Optimizer Config
}

// RaceResult is one race entrant's outcome.
type RaceResult struct {
	Seed    int64
	Context *constraint.Context
	Score   objective.Breakdown
	Stats   solver.Statistics
	Err     error
}

// Race runs cfg.Races independent solves, each with its own derived seed and
// its own Context, over a bounded worker pool. Every Context is built over
// the same residents and instances slices, which no worker modifies; all
// mutable state (schedule, resident states, night-runs) lives in each
// worker's own Context.
func Race(cfg RaceConfig, residents []*model.Resident, instances []model.ShiftInstance, horizonStart, horizonEnd time.Time, scorer *objective.Scorer) []RaceResult {
	n := cfg.Races
	if n < 1 {
		n = 1
	}
	workers := cfg.Workers
	if workers < 1 || workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	results := make([]RaceResult, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runOne(cfg, i, residents, instances, horizonStart, horizonEnd, scorer)
			}
		}()
	}
	wg.Wait()
	return results
}

// runOne runs one race entrant: a fresh Context, Phase A construction, then
// Phase B improvement, scored on completion.
func runOne(cfg RaceConfig, index int, residents []*model.Resident, instances []model.ShiftInstance, horizonStart, horizonEnd time.Time, scorer *objective.Scorer) RaceResult {
	seed := cfg.BaseSeed + int64(index)*1_000_003

	c := constraint.NewContext(horizonStart, horizonEnd, residents, instances)

	solverCfg := cfg.Solver
	solverCfg.Seed = seed
	phaseA := solver.New(solverCfg)
	result, err := phaseA.Solve(c)
	if err != nil {
		return RaceResult{Seed: seed, Context: c, Err: err}
	}

	optCfg := cfg.Optimizer
	optCfg.Seed = seed
	ls := New(optCfg, scorer)
	ls.Optimize(c)

	return RaceResult{
		Seed:    seed,
		Context: c,
		Score:   scorer.Score(c),
		Stats:   result.Statistics,
	}
}

// WinnerOf picks the minimum-scored feasible result among results.
// Infeasible races are returned separately and never win.
func WinnerOf(results []RaceResult) (winner *RaceResult, infeasible []RaceResult) {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			infeasible = append(infeasible, *r)
			continue
		}
		if winner == nil || r.Score.Total < winner.Score.Total {
			winner = r
		}
	}
	return winner, infeasible
}
