// Package constraint exposes the single legality predicate the solver and
// optimizer both consult before accepting any assignment, plus the
// incremental state that keeps it cheap to evaluate.
package constraint

import (
	"time"

	"github.com/paiban/edrota/pkg/model"
)

// Context is the scheduling instance: the resident roster, the expanded
// shift instances, and the running Schedule and per-resident State the
// legality predicate checks against. Every index it maintains (resident by
// handle, instance by key, assignments by date) is derived from these three
// and rebuilt incrementally as assignments change, never recomputed from
// scratch on every call.
type Context struct {
	HorizonStart time.Time
	HorizonEnd   time.Time

	Residents []*model.Resident
	Instances []model.ShiftInstance
	Schedule  model.Schedule

	residentByHandle map[string]*model.Resident
	instanceByKey    map[model.Key]model.ShiftInstance
	instancesByDate  map[string][]model.Key
	states           map[string]*model.State
	nightRuns        []*model.NightRun
}

// NewContext builds a Context over the given roster and expanded instance
// set, with an empty schedule.
func NewContext(horizonStart, horizonEnd time.Time, residents []*model.Resident, instances []model.ShiftInstance) *Context {
	c := &Context{
		HorizonStart:     horizonStart,
		HorizonEnd:       horizonEnd,
		Residents:        residents,
		Instances:        instances,
		Schedule:         make(model.Schedule),
		residentByHandle: make(map[string]*model.Resident, len(residents)),
		instanceByKey:    make(map[model.Key]model.ShiftInstance, len(instances)),
		instancesByDate:  make(map[string][]model.Key),
		states:           make(map[string]*model.State, len(residents)),
	}
	for _, r := range residents {
		c.residentByHandle[r.Handle] = r
		c.states[r.Handle] = model.NewState()
	}
	for _, inst := range instances {
		c.instanceByKey[inst.Key] = inst
		date := inst.Key.Date
		c.instancesByDate[date] = append(c.instancesByDate[date], inst.Key)
	}
	return c
}

// Resident looks up a resident by handle.
func (c *Context) Resident(handle string) *model.Resident {
	return c.residentByHandle[handle]
}

// Instance looks up a shift instance by key.
func (c *Context) Instance(key model.Key) (model.ShiftInstance, bool) {
	inst, ok := c.instanceByKey[key]
	return inst, ok
}

// InstancesOnDate returns the keys of every instance falling on the given
// YYYY-MM-DD date, in template order.
func (c *Context) InstancesOnDate(date string) []model.Key {
	return c.instancesByDate[date]
}

// State returns the running assignment state for a resident, creating one
// if the handle is unknown to the context's initial roster (never expected
// in practice, but keeps lookups total).
func (c *Context) State(handle string) *model.State {
	s, ok := c.states[handle]
	if !ok {
		s = model.NewState()
		c.states[handle] = s
	}
	return s
}

// NightRuns returns every night-run committed so far, complete or not.
func (c *Context) NightRuns() []*model.NightRun {
	return c.nightRuns
}

// ActiveNightRun returns the night-run a resident is currently mid-placement
// of, if any.
func (c *Context) ActiveNightRun(handle string) *model.NightRun {
	return c.State(handle).ActiveNightRun
}

// CommitNightRun registers a newly planned night-run and marks it active on
// its resident's state.
func (c *Context) CommitNightRun(run *model.NightRun) {
	c.nightRuns = append(c.nightRuns, run)
	c.State(run.Resident).ActiveNightRun = run
}

// UncommitNightRun reverses a CommitNightRun that turned out infeasible
// before any of its nights were placed: it removes run from the registry
// and clears it from its resident's active slot. Callers must only call
// this on a run that has not yet had any night assigned.
func (c *Context) UncommitNightRun(run *model.NightRun) {
	for i, existing := range c.nightRuns {
		if existing == run {
			c.nightRuns = append(c.nightRuns[:i], c.nightRuns[i+1:]...)
			break
		}
	}
	if s := c.State(run.Resident); s.ActiveNightRun == run {
		s.ActiveNightRun = nil
	}
}

// CloseNightRun caps a still-active run's target length at however many
// nights it actually placed and frees its resident's active-run slot. Used
// when a run that already reached 3 or 4 nights cannot legally continue
// (its required alternating hospital does not match the next available
// instance), so the team is not left permanently blocked on a commitment
// the template can never satisfy.
func (c *Context) CloseNightRun(run *model.NightRun) {
	run.Length = len(run.ShiftKeys)
	if s := c.State(run.Resident); s.ActiveNightRun == run {
		s.ActiveNightRun = nil
	}
}

// Assign records that handle fills the instance at key, updating the
// schedule and the resident's running state. level is the resident's PGY,
// needed to resolve the instance's duration.
func (c *Context) Assign(key model.Key, handle string, level model.PGYLevel) {
	inst, ok := c.instanceByKey[key]
	if !ok {
		return
	}
	c.Schedule[key] = handle

	s := c.State(handle)
	s.ByDate[key.Date] = key.Code
	s.AssignedMinutes += inst.Template.Duration(level) * 60
	rng := inst.Range(level)
	s.StartInstants = append(s.StartInstants, rng.Start)
	s.EndInstants = append(s.EndInstants, rng.End)

	if run := s.ActiveNightRun; run != nil && inst.Template.Start.IsNight() {
		run.ShiftKeys = append(run.ShiftKeys, key)
		run.Hospitals = append(run.Hospitals, inst.Template.Hospital)
		if run.Complete() {
			s.ActiveNightRun = nil
		}
	}
}

// Unassign removes an existing assignment, restoring the resident's prior
// running state. level must match the PGY level the assignment was made
// under (a resident's PGY never changes mid-horizon, so this is always the
// resident's current level).
func (c *Context) Unassign(key model.Key, level model.PGYLevel) {
	handle := c.Schedule[key]
	if handle == "" {
		return
	}
	inst, ok := c.instanceByKey[key]
	if !ok {
		return
	}
	delete(c.Schedule, key)

	s := c.State(handle)
	delete(s.ByDate, key.Date)
	s.AssignedMinutes -= inst.Template.Duration(level) * 60
	rng := inst.Range(level)
	removeInstant(&s.StartInstants, &s.EndInstants, rng.Start)
}

func removeInstant(starts, ends *[]time.Time, start time.Time) {
	for i, s := range *starts {
		if s.Equal(start) {
			*starts = append((*starts)[:i], (*starts)[i+1:]...)
			*ends = append((*ends)[:i], (*ends)[i+1:]...)
			return
		}
	}
}

// HoursTarget returns the resident's effective hour target for the
// horizon.
func (c *Context) HoursTarget(r *model.Resident) int {
	return r.HourTarget
}
