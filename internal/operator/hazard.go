package operator

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/predicate"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// HazardCurve is a piecewise-constant annualized hazard rate: Rates[0]
// applies before Breakpoints[0], Rates[i] over [Breakpoints[i-1],
// Breakpoints[i]), and the final rate extends to +inf. Breakpoints must be
// strictly increasing and have one fewer element than Rates (none for a
// constant-rate curve).
type HazardCurve struct {
	Breakpoints []date.Date
	Rates       []float64 // annualized hazard rate, 1/years
}

func (c HazardCurve) rateAt(d date.Date) float64 {
	if len(c.Rates) == 0 {
		return 0
	}
	i := 0
	for i < len(c.Breakpoints) && !d.Before(c.Breakpoints[i]) {
		i++
	}
	if i >= len(c.Rates) {
		i = len(c.Rates) - 1
	}
	return c.Rates[i]
}

// nextBreakAfter returns the first breakpoint strictly after d, or a zero
// date if none remains (curve's last segment runs to +inf).
func (c HazardCurve) nextBreakAfter(d date.Date) (date.Date, bool) {
	for _, b := range c.Breakpoints {
		if b.After(d) {
			return b, true
		}
	}
	return date.Zero, false
}

// CumulativeHazard integrates the (multiplier-scaled) hazard rate over
// [from, to).
func (c HazardCurve) CumulativeHazard(from, to date.Date, multiplier float64) float64 {
	if !to.After(from) {
		return 0
	}
	total := 0.0
	cur := from
	for cur.Before(to) {
		segEnd := to
		if next, ok := c.nextBreakAfter(cur); ok && next.Before(segEnd) {
			segEnd = next
		}
		years := float64(segEnd.DaysSince(cur)) / 365.2425
		total += c.rateAt(cur) * multiplier * years
		cur = segEnd
	}
	return total
}

// FirstJumpDate finds the date in [from, to) at which cumulative hazard
// reaches -ln(1-u), the inverse-CDF draw for an exponential-style jump time
// under a piecewise-constant rate. Returns false if no such date falls
// within the window (the actor survives the period in this state).
func (c HazardCurve) FirstJumpDate(from, to date.Date, multiplier, u float64) (date.Date, bool) {
	if u >= 1 {
		u = 1 - 1e-12
	}
	target := -math.Log(1 - u)
	cur := from
	acc := 0.0
	for cur.Before(to) {
		segEnd := to
		if next, ok := c.nextBreakAfter(cur); ok && next.Before(segEnd) {
			segEnd = next
		}
		rate := c.rateAt(cur) * multiplier
		years := float64(segEnd.DaysSince(cur)) / 365.2425
		segHazard := rate * years
		if rate > 0 && acc+segHazard >= target {
			remaining := target - acc
			yearsIntoSeg := remaining / rate
			days := int(math.Round(yearsIntoSeg * 365.2425))
			jump := cur.AddDays(days)
			if jump.Before(to) {
				return jump, true
			}
			return date.Zero, false
		}
		acc += segHazard
		cur = segEnd
	}
	return date.Zero, false
}

// HazardModelOperator is a generic multi-state hazard-driven transition
// (§4.E.1): mortality, and any other binary or multi-state process whose
// sojourn times are governed by piecewise-constant hazard rates, specialize
// it by supplying CurveFor/CurrentState/SetNextState.
type HazardModelOperator struct {
	OpName          string
	Pred            predicate.Predicate
	CurveFor        func(p *actor.Person) HazardCurve
	RelativeRisks   func(p *actor.Person, ctx Contexts, asOf date.Date) []RelativeRisk
	CurrentState    func(p *actor.Person, ctx Contexts) int
	NextState       func(currentState int) int
	SetNextState    func(p *actor.Person, jumpDate date.Date, newState int, ctx Contexts)
	MoveToBirthDate bool
	ProvidesSet     feature.Set
	RequiresSet     feature.Set
}

func (h *HazardModelOperator) Name() string               { return h.OpName }
func (h *HazardModelOperator) Predicate() predicate.Predicate { return h.Pred }
func (h *HazardModelOperator) IsActive(d date.Date) bool   { return h.Pred.Active(d) }
func (h *HazardModelOperator) Provides() feature.Set       { return h.ProvidesSet }
func (h *HazardModelOperator) Requires() feature.Set       { return h.RequiresSet }

func (h *HazardModelOperator) Apply(actors []*actor.Person, period schedule.Period, ctx Contexts) {
	for _, p := range actors {
		h.applyOne(p, period, ctx)
	}
}

func (h *HazardModelOperator) applyOne(p *actor.Person, period schedule.Period, ctx Contexts) {
	asof := period.Begin
	end := period.End
	curve := h.CurveFor(p)
	if h.MoveToBirthDate {
		// Re-anchor the curve's timeline to age since birth rather than
		// calendar date: shift breakpoints so index 0 means "at DOB".
		curve = anchorToBirth(curve, p.DateOfBirth())
	}
	for asof.Before(end) {
		state := h.CurrentState(p, ctx)
		if h.NextState(state) == state {
			// Absorbing state (e.g. already dead): nothing further to draw.
			return
		}
		risks := h.RelativeRisks(p, ctx, asof)
		multiplier := CombinedMultiplier(risks, asof)
		u := ctx.Mutable.RNG.NextUniform()
		jump, ok := curve.FirstJumpDate(asof, end, multiplier, u)
		if !ok {
			return
		}
		newState := h.NextState(state)
		h.SetNextState(p, jump, newState, ctx)
		asof = jump
	}
}

func anchorToBirth(c HazardCurve, dob date.Date) HazardCurve {
	// Breakpoints in the supplied curve are already ages-since-birth
	// expressed as absolute dates offset from a nominal epoch; shifting by
	// the actor's DOB realigns them to calendar time.
	shifted := HazardCurve{Rates: c.Rates, Breakpoints: make([]date.Date, len(c.Breakpoints))}
	for i, b := range c.Breakpoints {
		years := b.Year
		shifted.Breakpoints[i] = dob.AddYears(years).AddMonths(int(b.Month) - 1).AddDays(b.Day - 1)
	}
	return shifted
}
