package optimizer

import (
	"testing"
	"time"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/objective"
	"github.com/paiban/edrota/pkg/scheduler/solver"
)

func TestRacePicksMinimumScoredFeasibleResult(t *testing.T) {
	residents := []*model.Resident{
		{Handle: "r3a", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 10},
		{Handle: "r3b", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 10},
	}
	inst := redInstance("2026-07-06", "m-L-R-07-A", 7)
	horizonStart := mustParse(t, "2026-07-06")
	horizonEnd := mustParse(t, "2026-07-06")

	scorer := objective.NewScorer(testWeights())
	cfg := RaceConfig{
		Races:    4,
		BaseSeed: 100,
		Workers:  2,
		Solver:   solver.Config{BacktrackBudget: 5},
		Optimizer: Config{
			MaxIterations:      50,
			MaxTime:            time.Second,
			InitialTemperature: 5,
			CoolingRate:        0.9,
			PlateauThreshold:   50,
			TabuSize:           5,
		},
	}

	results := Race(cfg, residents, []model.ShiftInstance{inst}, horizonStart, horizonEnd, scorer)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	winner, infeasible := WinnerOf(results)
	if winner == nil {
		t.Fatal("expected a feasible winner")
	}
	if len(infeasible) != 0 {
		t.Errorf("expected no infeasible races, got %d", len(infeasible))
	}
	if !winner.Context.Schedule.Filled(inst.Key) {
		t.Error("winning race left the only required shift unfilled")
	}

	for _, r := range results {
		if r.Err == nil && r.Score.Total < winner.Score.Total {
			t.Errorf("winner score %.2f is not the minimum (seed %d scored %.2f)", winner.Score.Total, r.Seed, r.Score.Total)
		}
	}
}
