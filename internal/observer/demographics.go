// Package observer implements the two per-period aggregation kinds (§4.G):
// demographics counters bucketed by age range/ethnicity/sex, and online
// univariate/pairwise statistics over arbitrary observed quantities.
package observer

import (
	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/schedule"
)

// AgeRange is a half-open [Min, Max) whole-years bucket.
type AgeRange struct {
	Min, Max int
}

func (r AgeRange) contains(age int) bool { return age >= r.Min && age < r.Max }

type demoKey struct {
	ageRange  int
	ethnicity uint8
	sex       actor.Sex
}

// DemographicCounts is the per-bucket, per-date tally.
type DemographicCounts struct {
	Population int
	Births     int
	Deaths     int
}

// DemographicsObserver tallies a population snapshot into age/ethnicity/sex
// buckets at every schedule date (§4.G). One instance observes the main
// population; separate instances (fed from the mutable context's
// immigrant/emigrant buffers) produce the immigrant/emigrant variants.
type DemographicsObserver struct {
	ObsName   string
	AgeRanges []AgeRange

	counts map[int]map[demoKey]*DemographicCounts // dateIndex -> bucket -> counts
}

// NewDemographicsObserver builds an observer over the given age buckets.
func NewDemographicsObserver(name string, ranges []AgeRange) *DemographicsObserver {
	return &DemographicsObserver{
		ObsName:   name,
		AgeRanges: ranges,
		counts:    make(map[int]map[demoKey]*DemographicCounts),
	}
}

func (d *DemographicsObserver) Name() string { return d.ObsName }

func (d *DemographicsObserver) ageRangeIndex(age int) int {
	for i, r := range d.AgeRanges {
		if r.contains(age) {
			return i
		}
	}
	return -1
}

func (d *DemographicsObserver) bucket(dateIndex int, key demoKey) *DemographicCounts {
	byBucket, ok := d.counts[dateIndex]
	if !ok {
		byBucket = make(map[demoKey]*DemographicCounts)
		d.counts[dateIndex] = byBucket
	}
	c, ok := byBucket[key]
	if !ok {
		c = &DemographicCounts{}
		byBucket[key] = c
	}
	return c
}

// Observe tallies persons for the period [period.Begin, period.End),
// recorded under dateIndex (the k of d_k). Population is counted as of
// period.Begin; a birth is counted if DOB falls in the period (bucketed by
// the mother's age at period.Begin when linkable, else the child's own age,
// i.e. 0); a death is counted if DOD falls in the period (bucketed by the
// person's own age at death).
func (d *DemographicsObserver) Observe(persons []*actor.Person, period schedule.Period, dateIndex int) {
	for _, p := range persons {
		if p.IsAlive(period.Begin) {
			age := p.Age(period.Begin)
			if idx := d.ageRangeIndex(age); idx >= 0 {
				key := demoKey{ageRange: idx, ethnicity: p.Ethnicity(), sex: p.Sex()}
				d.bucket(dateIndex, key).Population++
			}
		}

		if dob := p.DateOfBirth(); !dob.Before(period.Begin) && dob.Before(period.End) {
			age := 0
			ethnicity := p.Ethnicity()
			sex := p.Sex()
			if mother := p.Mother(); mother != nil {
				age = mother.Age(period.Begin)
			}
			if idx := d.ageRangeIndex(age); idx >= 0 {
				key := demoKey{ageRange: idx, ethnicity: ethnicity, sex: sex}
				d.bucket(dateIndex, key).Births++
			}
		}

		if dod := p.DateOfDeath(); !dod.IsZero() && !dod.Before(period.Begin) && dod.Before(period.End) {
			age := p.Age(dod)
			if idx := d.ageRangeIndex(age); idx >= 0 {
				key := demoKey{ageRange: idx, ethnicity: p.Ethnicity(), sex: p.Sex()}
				d.bucket(dateIndex, key).Deaths++
			}
		}
	}
}

// DemographicBucket is one populated (age range, ethnicity, sex) tally at a
// date index, as returned by Snapshot.
type DemographicBucket struct {
	AgeRangeIdx int
	Ethnicity   uint8
	Sex         actor.Sex
	Counts      DemographicCounts
}

// Snapshot returns every bucket with a nonzero tally at dateIndex, for
// persistence or reporting (§6.7). Order is unspecified.
func (d *DemographicsObserver) Snapshot(dateIndex int) []DemographicBucket {
	byBucket, ok := d.counts[dateIndex]
	if !ok {
		return nil
	}
	out := make([]DemographicBucket, 0, len(byBucket))
	for k, c := range byBucket {
		out = append(out, DemographicBucket{AgeRangeIdx: k.ageRange, Ethnicity: k.ethnicity, Sex: k.sex, Counts: *c})
	}
	return out
}

// Counts returns the tally for a bucket at a date, or a zero value if never
// observed.
func (d *DemographicsObserver) Counts(dateIndex, ageRangeIdx int, ethnicity uint8, sex actor.Sex) DemographicCounts {
	byBucket, ok := d.counts[dateIndex]
	if !ok {
		return DemographicCounts{}
	}
	c, ok := byBucket[demoKey{ageRange: ageRangeIdx, ethnicity: ethnicity, sex: sex}]
	if !ok {
		return DemographicCounts{}
	}
	return *c
}
