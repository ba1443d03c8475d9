package initialiser

import (
	"math"

	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

// Perturbation mutates a batch of bootstrapped drafts before they are
// materialized into Persons (§4.I).
type Perturbation interface {
	Apply(drafts []draft, ctx operator.Contexts)
}

// PerturbDateOfBirthDay replaces the day-of-month of DOB with a uniformly
// random one in the same month, leaving month and year untouched. A draft
// linked to a family mother in the same batch is left alone, so the
// mother/conception-date ordering a family clone depends on is never
// invalidated.
type PerturbDateOfBirthDay struct {
	ShiftHistoryDates bool
}

func (p PerturbDateOfBirthDay) Apply(drafts []draft, ctx operator.Contexts) {
	for i := range drafts {
		perturbDOB(&drafts[i], ctx, p.ShiftHistoryDates, randomDayWithinMonth)
	}
}

// PerturbDateOfBirthMonth replaces the month of DOB with a uniformly random
// one in the same year.
type PerturbDateOfBirthMonth struct {
	ShiftHistoryDates bool
}

func (p PerturbDateOfBirthMonth) Apply(drafts []draft, ctx operator.Contexts) {
	for i := range drafts {
		perturbDOB(&drafts[i], ctx, p.ShiftHistoryDates, randomMonthWithinYear)
	}
}

func perturbDOB(d *draft, ctx operator.Contexts, shiftHistories bool, compute func(date.Date, operator.Contexts) date.Date) {
	if d.motherIdx >= 0 {
		return
	}
	newDOB := compute(d.dob, ctx)
	delta := newDOB.DaysSince(d.dob)
	d.dob = newDOB
	if !shiftHistories || delta == 0 {
		return
	}
	for _, h := range d.histories {
		if h == nil {
			continue
		}
		for i, dt := range h.dates {
			h.dates[i] = dt.AddDays(delta)
		}
	}
}

func randomDayWithinMonth(dob date.Date, ctx operator.Contexts) date.Date {
	firstOfMonth := date.MustNew(dob.Year, dob.Month, 1)
	lastDay := firstOfMonth.AddMonths(1).AddDays(-1).Day
	newDay := 1 + ctx.Mutable.RNG.NextUniformInt(lastDay-1)
	return date.MustNew(dob.Year, dob.Month, newDay)
}

func randomMonthWithinYear(dob date.Date, ctx operator.Contexts) date.Date {
	newMonth := 1 + ctx.Mutable.RNG.NextUniformInt(11)
	return dob.AddMonths(newMonth - dob.Month) // Period-style shift: clamps the day when the target month is shorter
}

// PerturbHistoryValuesLinear perturbs every stored value of a double history
// variable additively: v' = clamp(v + Noise(), LowerBound, UpperBound).
type PerturbHistoryValuesLinear struct {
	Variable   registry.VarIndex
	LowerBound float64
	UpperBound float64
	Noise      func(ctx operator.Contexts) float64
}

func (p PerturbHistoryValuesLinear) Apply(drafts []draft, ctx operator.Contexts) {
	perturbHistoryDouble(drafts, p.Variable, p.LowerBound, p.UpperBound, ctx, func(v float64, ctx operator.Contexts) float64 {
		return v + p.Noise(ctx)
	})
}

// PerturbHistoryValuesLogarithmic perturbs every stored value of a double
// history variable multiplicatively: v' = clamp(v * exp(Noise()), LowerBound,
// UpperBound), keeping a strictly positive quantity positive under
// perturbation.
type PerturbHistoryValuesLogarithmic struct {
	Variable   registry.VarIndex
	LowerBound float64
	UpperBound float64
	Noise      func(ctx operator.Contexts) float64
}

func (p PerturbHistoryValuesLogarithmic) Apply(drafts []draft, ctx operator.Contexts) {
	perturbHistoryDouble(drafts, p.Variable, p.LowerBound, p.UpperBound, ctx, func(v float64, ctx operator.Contexts) float64 {
		return v * math.Exp(p.Noise(ctx))
	})
}

func perturbHistoryDouble(drafts []draft, variable registry.VarIndex, lower, upper float64, ctx operator.Contexts, perturb func(float64, operator.Contexts) float64) {
	idx := int(variable)
	for i := range drafts {
		if idx >= len(drafts[i].histories) {
			continue
		}
		h := drafts[i].histories[idx]
		if h == nil {
			continue
		}
		for j, v := range h.values {
			if v.Kind() != history.KindFloat64 && v.Kind() != history.KindFloat32 {
				continue
			}
			nv := perturb(v.AsFloat64(), ctx)
			if nv > upper {
				nv = upper
			}
			if nv < lower {
				nv = lower
			}
			if v.Kind() == history.KindFloat32 {
				h.values[j] = history.FromFloat32(float32(nv))
			} else {
				h.values[j] = history.FromFloat64(nv)
			}
		}
	}
}
