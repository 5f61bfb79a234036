package optimizer

import (
	"math/rand"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// MoveType identifies one of Phase B's neighborhood moves.
type MoveType int

const (
	MoveSwap         MoveType = iota // exchange two instances' residents
	MoveReassign                     // change one instance's resident
	MoveFillOptional                 // assign an unfilled optional instance
	MoveDropOptional                 // unassign an optional instance
	MoveNightReshape                 // replace a whole night-run's resident
)

// Move is a single proposed change to a context, generated and legality-
// checked already; Apply only ever replays a move the generator already
// confirmed legal against the same, unmutated context.
type Move struct {
	Type MoveType

	KeyA, KeyB     model.Key // Swap uses both; the rest use KeyA only
	ResidentA      string    // resident currently at KeyA (or run.Resident for reshape)
	ResidentB      string    // resident currently at KeyB (Swap only)
	NewResident    string    // incoming resident (Reassign, FillOptional)
	LevelA, LevelB model.PGYLevel

	Run            *model.NightRun // NightReshape only
	NewResidentRun string
}

// Apply commits the move to c.
func (m Move) Apply(c *constraint.Context) {
	switch m.Type {
	case MoveSwap:
		c.Unassign(m.KeyA, m.LevelA)
		c.Unassign(m.KeyB, m.LevelB)
		rb := c.Resident(m.ResidentB)
		ra := c.Resident(m.ResidentA)
		c.Assign(m.KeyA, m.ResidentB, rb.PGY)
		c.Assign(m.KeyB, m.ResidentA, ra.PGY)
	case MoveReassign:
		c.Unassign(m.KeyA, m.LevelA)
		nr := c.Resident(m.NewResident)
		c.Assign(m.KeyA, m.NewResident, nr.PGY)
	case MoveFillOptional:
		nr := c.Resident(m.NewResident)
		c.Assign(m.KeyA, m.NewResident, nr.PGY)
	case MoveDropOptional:
		c.Unassign(m.KeyA, m.LevelA)
	case MoveNightReshape:
		applyNightReshape(c, m)
	}
}

// applyNightReshape tears down every night in m.Run under its current
// resident and reassigns the same keys to m.NewResidentRun, mutating the
// run's Resident field in place rather than creating a second NightRun
// entry. Each night's hospital is fixed by its own instance, so alternation
// is preserved automatically.
func applyNightReshape(c *constraint.Context, m Move) {
	old := c.Resident(m.ResidentA)
	newResident := c.Resident(m.NewResidentRun)
	keys := append([]model.Key(nil), m.Run.ShiftKeys...)
	for _, k := range keys {
		c.Unassign(k, old.PGY)
	}
	m.Run.Resident = m.NewResidentRun
	for _, k := range keys {
		c.Assign(k, m.NewResidentRun, newResident.PGY)
	}
}

// Undo reverses a move previously applied to c, restoring its prior state.
func (m Move) Undo(c *constraint.Context) {
	switch m.Type {
	case MoveSwap:
		ra := c.Resident(m.ResidentA)
		rb := c.Resident(m.ResidentB)
		c.Unassign(m.KeyA, rb.PGY)
		c.Unassign(m.KeyB, ra.PGY)
		c.Assign(m.KeyA, m.ResidentA, ra.PGY)
		c.Assign(m.KeyB, m.ResidentB, rb.PGY)
	case MoveReassign:
		nr := c.Resident(m.NewResident)
		c.Unassign(m.KeyA, nr.PGY)
		old := c.Resident(m.ResidentA)
		c.Assign(m.KeyA, m.ResidentA, old.PGY)
	case MoveFillOptional:
		nr := c.Resident(m.NewResident)
		c.Unassign(m.KeyA, nr.PGY)
	case MoveDropOptional:
		old := c.Resident(m.ResidentA)
		c.Assign(m.KeyA, m.ResidentA, old.PGY)
	case MoveNightReshape:
		undoNightReshape(c, m)
	}
}

// undoNightReshape reverses applyNightReshape: unassign under the new
// resident, restore m.Run's Resident field, reassign under the original.
func undoNightReshape(c *constraint.Context, m Move) {
	newResident := c.Resident(m.NewResidentRun)
	old := c.Resident(m.ResidentA)
	keys := append([]model.Key(nil), m.Run.ShiftKeys...)
	for _, k := range keys {
		c.Unassign(k, newResident.PGY)
	}
	m.Run.Resident = m.ResidentA
	for _, k := range keys {
		c.Assign(k, m.ResidentA, old.PGY)
	}
}

// Generator proposes random legal moves against a context, weighted the way
// the teacher's NeighborhoodGenerator weights its own move set, restricted
// to the five moves this domain's Phase B defines.
type Generator struct {
	rng         *rand.Rand
	moveWeights map[MoveType]float64
}

// NewGenerator builds a move generator seeded by rng.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{
		rng: rng,
		moveWeights: map[MoveType]float64{
			MoveSwap:         0.35,
			MoveReassign:     0.30,
			MoveFillOptional: 0.20,
			MoveDropOptional: 0.10,
			MoveNightReshape: 0.05,
		},
	}
}

// moveOrder fixes iteration order over moveWeights so selectMoveType's
// cumulative-probability walk is deterministic for a given rng draw.
var moveOrder = []MoveType{MoveSwap, MoveReassign, MoveFillOptional, MoveDropOptional, MoveNightReshape}

// Propose returns one legal candidate move against c, or ok=false if the
// chosen move type found nothing applicable within a bounded number of
// random tries.
func (g *Generator) Propose(c *constraint.Context) (Move, bool) {
	switch g.selectMoveType() {
	case MoveSwap:
		return g.proposeSwap(c)
	case MoveReassign:
		return g.proposeReassign(c)
	case MoveFillOptional:
		return g.proposeFillOptional(c)
	case MoveDropOptional:
		return g.proposeDropOptional(c)
	case MoveNightReshape:
		return g.proposeNightReshape(c)
	default:
		return g.proposeSwap(c)
	}
}

func (g *Generator) selectMoveType() MoveType {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, mt := range moveOrder {
		cumulative += g.moveWeights[mt]
		if r < cumulative {
			return mt
		}
	}
	return MoveSwap
}

const proposalAttempts = 20

// proposeSwap picks two filled instances at random and checks that
// exchanging their residents keeps both legal, probing by mutating c and
// rolling back immediately regardless of outcome.
func (g *Generator) proposeSwap(c *constraint.Context) (Move, bool) {
	filled := filledKeys(c)
	if len(filled) < 2 {
		return Move{}, false
	}
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		ka := filled[g.rng.Intn(len(filled))]
		kb := filled[g.rng.Intn(len(filled))]
		if ka == kb {
			continue
		}
		instA, _ := c.Instance(ka)
		instB, _ := c.Instance(kb)
		ra := c.Resident(c.Schedule[ka])
		rb := c.Resident(c.Schedule[kb])
		if ra == nil || rb == nil || ra.Handle == rb.Handle {
			continue
		}
		if !instA.Template.Eligible(rb.PGY) || !instB.Template.Eligible(ra.PGY) {
			continue
		}

		c.Unassign(ka, ra.PGY)
		c.Unassign(kb, rb.PGY)
		okA, _ := constraint.Legal(c, rb, instA)
		okB, _ := constraint.Legal(c, ra, instB)
		c.Assign(ka, ra.Handle, ra.PGY)
		c.Assign(kb, rb.Handle, rb.PGY)
		if !okA || !okB {
			continue
		}
		return Move{Type: MoveSwap, KeyA: ka, KeyB: kb, ResidentA: ra.Handle, ResidentB: rb.Handle, LevelA: ra.PGY, LevelB: rb.PGY}, true
	}
	return Move{}, false
}

// proposeReassign picks a filled instance and a different eligible resident
// to take it over.
func (g *Generator) proposeReassign(c *constraint.Context) (Move, bool) {
	filled := filledKeys(c)
	if len(filled) == 0 {
		return Move{}, false
	}
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		key := filled[g.rng.Intn(len(filled))]
		inst, _ := c.Instance(key)
		current := c.Resident(c.Schedule[key])
		candidate := c.Residents[g.rng.Intn(len(c.Residents))]
		if current == nil || candidate.Handle == current.Handle {
			continue
		}
		if !inst.Template.Eligible(candidate.PGY) {
			continue
		}

		c.Unassign(key, current.PGY)
		ok, _ := constraint.Legal(c, candidate, inst)
		c.Assign(key, current.Handle, current.PGY)
		if !ok {
			continue
		}
		return Move{Type: MoveReassign, KeyA: key, ResidentA: current.Handle, NewResident: candidate.Handle, LevelA: current.PGY}, true
	}
	return Move{}, false
}

// proposeFillOptional picks an unfilled optional instance and a legal
// resident below target to take it.
func (g *Generator) proposeFillOptional(c *constraint.Context) (Move, bool) {
	unfilled := unfilledOptionalKeys(c)
	if len(unfilled) == 0 {
		return Move{}, false
	}
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		key := unfilled[g.rng.Intn(len(unfilled))]
		inst, _ := c.Instance(key)
		candidate := c.Residents[g.rng.Intn(len(c.Residents))]
		if !inst.Template.Eligible(candidate.PGY) || !belowTarget(c, candidate) {
			continue
		}
		if ok, _ := constraint.Legal(c, candidate, inst); ok {
			return Move{Type: MoveFillOptional, KeyA: key, NewResident: candidate.Handle}, true
		}
	}
	return Move{}, false
}

// proposeDropOptional picks a filled optional instance whose resident is
// currently above target.
func (g *Generator) proposeDropOptional(c *constraint.Context) (Move, bool) {
	filled := filledOptionalKeys(c)
	if len(filled) == 0 {
		return Move{}, false
	}
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		key := filled[g.rng.Intn(len(filled))]
		r := c.Resident(c.Schedule[key])
		if r == nil {
			continue
		}
		if aboveTarget(c, r) {
			return Move{Type: MoveDropOptional, KeyA: key, ResidentA: r.Handle, LevelA: r.PGY}, true
		}
	}
	return Move{}, false
}

// proposeNightReshape picks a complete night-run and a different eligible
// resident to run it instead.
func (g *Generator) proposeNightReshape(c *constraint.Context) (Move, bool) {
	var complete []*model.NightRun
	for _, run := range c.NightRuns() {
		if run.Complete() {
			complete = append(complete, run)
		}
	}
	if len(complete) == 0 {
		return Move{}, false
	}
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		run := complete[g.rng.Intn(len(complete))]
		candidate := c.Residents[g.rng.Intn(len(c.Residents))]
		old := c.Resident(run.Resident)
		if old == nil || candidate.Handle == old.Handle {
			continue
		}
		if !nightRunEligible(c, run, candidate) {
			continue
		}
		return Move{Type: MoveNightReshape, Run: run, ResidentA: old.Handle, NewResidentRun: candidate.Handle}, true
	}
	return Move{}, false
}

// nightRunEligible checks whether candidate could legally take over every
// shift in run, without leaving any lasting change on c. It tentatively
// commits a trial run under candidate and walks the nights in order,
// Assigning each only after Legal passes against the state built up by the
// earlier nights in the same trial, then unwinds everything before
// returning.
func nightRunEligible(c *constraint.Context, run *model.NightRun, candidate *model.Resident) bool {
	for _, k := range run.ShiftKeys {
		inst, ok := c.Instance(k)
		if !ok || !inst.Template.Eligible(candidate.PGY) {
			return false
		}
	}

	trial := &model.NightRun{Resident: candidate.Handle, StartDate: run.StartDate, Length: run.Length}
	c.CommitNightRun(trial)
	placed := 0
	eligible := true
	for _, k := range run.ShiftKeys {
		inst, ok := c.Instance(k)
		if !ok {
			eligible = false
			break
		}
		if ok, _ := constraint.Legal(c, candidate, inst); !ok {
			eligible = false
			break
		}
		c.Assign(k, candidate.Handle, candidate.PGY)
		placed++
	}

	for i := placed - 1; i >= 0; i-- {
		c.Unassign(run.ShiftKeys[i], candidate.PGY)
		// Unassign drops the key from the schedule; hand it back to the
		// run's own resident, whose state the trial never touched.
		c.Schedule[run.ShiftKeys[i]] = run.Resident
	}
	c.UncommitNightRun(trial)
	return eligible
}

func belowTarget(c *constraint.Context, r *model.Resident) bool {
	actual := float64(c.State(r.Handle).AssignedMinutes) / 60.0
	return actual < float64(c.HoursTarget(r))
}

func aboveTarget(c *constraint.Context, r *model.Resident) bool {
	actual := float64(c.State(r.Handle).AssignedMinutes) / 60.0
	return actual > float64(c.HoursTarget(r))
}

func filledKeys(c *constraint.Context) []model.Key {
	var keys []model.Key
	for _, inst := range c.Instances {
		if c.Schedule.Filled(inst.Key) {
			keys = append(keys, inst.Key)
		}
	}
	return keys
}

func unfilledOptionalKeys(c *constraint.Context) []model.Key {
	var keys []model.Key
	for _, inst := range c.Instances {
		if !inst.Required && !c.Schedule.Filled(inst.Key) {
			keys = append(keys, inst.Key)
		}
	}
	return keys
}

func filledOptionalKeys(c *constraint.Context) []model.Key {
	var keys []model.Key
	for _, inst := range c.Instances {
		if !inst.Required && c.Schedule.Filled(inst.Key) {
			keys = append(keys, inst.Key)
		}
	}
	return keys
}
