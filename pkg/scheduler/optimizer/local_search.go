// Package optimizer implements Phase B: a hill-climb with simulated-
// annealing acceptance over the neighborhood moves defined in neighbors.go,
// scored by the objective package.
package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/paiban/edrota/pkg/scheduler/constraint"
	"github.com/paiban/edrota/pkg/scheduler/objective"
)

// Config tunes Phase B's search.
type Config struct {
	MaxIterations      int
	MaxTime            time.Duration
	InitialTemperature float64
	CoolingRate        float64
	PlateauThreshold   int
	TabuSize           int
	Seed               int64
}

// DefaultConfig returns Phase B's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      20000,
		MaxTime:            30 * time.Second,
		InitialTemperature: 50.0,
		CoolingRate:        0.995,
		PlateauThreshold:   2000,
		TabuSize:           200,
		Seed:               1,
	}
}

// Result is Phase B's output.
type Result struct {
	Best          objective.Breakdown
	Iterations    int
	Accepted      int
	NoImprovement int
	Duration      time.Duration
}

// LocalSearch implements Phase B's simulated-annealing hill-climb.
type LocalSearch struct {
	cfg       Config
	scorer    *objective.Scorer
	generator *Generator
	tabu      *TabuList
	rng       *rand.Rand
}

// New builds a Phase B optimizer over the given scorer, seeded by cfg.Seed.
func New(cfg Config, scorer *objective.Scorer) *LocalSearch {
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &LocalSearch{
		cfg:       cfg,
		scorer:    scorer,
		generator: NewGenerator(rng),
		tabu:      NewTabuList(cfg.TabuSize),
		rng:       rng,
	}
}

// Optimize runs the hill-climb in place over c, mutating its schedule and
// state directly, and returns the best score seen during the search
// (Result.Best) and run statistics. c is left as of the last accepted move,
// which scores above Result.Best when a worsening move was accepted after
// the best one. Every
// move applied is re-verified legal at proposal time and reversed via Undo
// when rejected, so c is always left in a legal state, including on early
// return.
func (ls *LocalSearch) Optimize(c *constraint.Context) Result {
	start := time.Now()
	current := ls.scorer.Score(c)
	best := current

	temperature := ls.cfg.InitialTemperature
	noImprovement := 0
	accepted := 0
	iter := 0

	for ; iter < ls.cfg.MaxIterations; iter++ {
		if time.Since(start) > ls.cfg.MaxTime {
			break
		}

		move, ok := ls.generator.Propose(c)
		if !ok {
			continue
		}

		key := moveKey(move)
		if ls.tabu.Contains(key) {
			continue
		}

		move.Apply(c)
		candidate := ls.scorer.Score(c)
		delta := candidate.Total - current.Total

		accept := delta <= 0
		if !accept {
			prob := boltzmannProbability(delta, temperature)
			accept = ls.rng.Float64() < prob
		}

		if accept {
			current = candidate
			accepted++
			ls.tabu.Add(key)
			if current.Total < best.Total {
				best = current
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			move.Undo(c)
			noImprovement++
		}

		if noImprovement >= ls.cfg.PlateauThreshold {
			break
		}
		temperature *= ls.cfg.CoolingRate
	}

	return Result{
		Best:          best,
		Iterations:    iter,
		Accepted:      accepted,
		NoImprovement: noImprovement,
		Duration:      time.Since(start),
	}
}

// boltzmannProbability computes the simulated-annealing acceptance
// probability for a worsening move of size delta at the given temperature.
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// moveKey identifies a move for tabu purposes by the keys and residents it
// touches, so the search doesn't immediately undo the same swap it just
// made.
func moveKey(m Move) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s", m.Type, m.KeyA, m.KeyB, m.ResidentA, m.NewResident, m.NewResidentRun)
}

// TabuList remembers recently applied moves so the hill-climb doesn't
// immediately reverse one it just made, evicting the oldest entry once full.
type TabuList struct {
	items   map[string]struct{}
	order   []string
	maxSize int
}

// NewTabuList builds an empty tabu list bounded to size entries.
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[string]struct{}),
		order:   make([]string, 0, size),
		maxSize: size,
	}
}

// Add records key as recently used, evicting the oldest entry if full.
func (t *TabuList) Add(key string) {
	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains reports whether key was recently used.
func (t *TabuList) Contains(key string) bool {
	_, exists := t.items[key]
	return exists
}
