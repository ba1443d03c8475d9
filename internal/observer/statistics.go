package observer

import (
	"math"
	"sort"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/operator"
)

// Quantity reads an observed value off a person; ok is false for a missing
// value (excluded from moments, per §4.G's "NaN values are excluded").
type Quantity func(p *actor.Person, ctx operator.Contexts, asOf date.Date) (value float64, ok bool)

// runningMoments is Terriberry's single-pass online updater for the first
// four central moments, letting mean/variance/skewness/kurtosis be read at
// any point without re-scanning the buffered samples.
type runningMoments struct {
	n          int64
	mean       float64
	m2, m3, m4 float64
	min, max   float64
}

func (r *runningMoments) update(x float64) {
	n1 := r.n
	r.n++
	delta := x - r.mean
	deltaN := delta / float64(r.n)
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * float64(n1)
	r.mean += deltaN
	r.m4 += term1*deltaN2*float64(r.n*r.n-3*r.n+3) + 6*deltaN2*r.m2 - 4*deltaN*r.m3
	r.m3 += term1*deltaN*float64(r.n-2) - 3*deltaN*r.m2
	r.m2 += term1
	if r.n == 1 || x < r.min {
		r.min = x
	}
	if r.n == 1 || x > r.max {
		r.max = x
	}
}

func (r *runningMoments) variance() float64 {
	if r.n < 2 {
		return math.NaN()
	}
	return r.m2 / float64(r.n-1)
}

func (r *runningMoments) skewness() float64 {
	if r.n < 2 || r.m2 == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(r.n)) * r.m3 / math.Pow(r.m2, 1.5)
}

func (r *runningMoments) kurtosis() float64 {
	if r.n < 2 || r.m2 == 0 {
		return math.NaN()
	}
	return float64(r.n)*r.m4/(r.m2*r.m2) - 3
}

// runningCovariance is the standard online pairwise-covariance updater.
type runningCovariance struct {
	n            int64
	meanX, meanY float64
	c            float64
}

func (r *runningCovariance) update(x, y float64) {
	r.n++
	dx := x - r.meanX
	r.meanX += dx / float64(r.n)
	r.meanY += (y - r.meanY) / float64(r.n)
	r.c += dx * (y - r.meanY)
}

func (r *runningCovariance) covariance() float64 {
	if r.n < 2 {
		return math.NaN()
	}
	return r.c / float64(r.n-1)
}

// Summary is a read-only snapshot of one quantity's statistics at one date.
type Summary struct {
	N        int64
	Mean     float64
	Variance float64
	Skewness float64
	Kurtosis float64
	Min, Max float64
	Median   float64 // NaN unless the observer buffers values (KeepMedians)
}

type pairKey struct{ a, b string }

// StatisticsObserver tracks per-date running statistics for a set of named
// quantities, plus pairwise covariances between every pair (§4.G).
type StatisticsObserver struct {
	ObsName     string
	Quantities  map[string]Quantity
	KeepMedians bool

	moments     map[int]map[string]*runningMoments
	covariances map[int]map[pairKey]*runningCovariance
	buffers     map[int]map[string][]float64
}

// NewStatisticsObserver builds an observer over the given named quantities.
func NewStatisticsObserver(name string, quantities map[string]Quantity, keepMedians bool) *StatisticsObserver {
	return &StatisticsObserver{
		ObsName:     name,
		Quantities:  quantities,
		KeepMedians: keepMedians,
		moments:     make(map[int]map[string]*runningMoments),
		covariances: make(map[int]map[pairKey]*runningCovariance),
		buffers:     make(map[int]map[string][]float64),
	}
}

func (s *StatisticsObserver) Name() string { return s.ObsName }

// Observe evaluates every quantity for each person as of asOf, updates the
// running moments, and updates every pairwise covariance between
// simultaneously-non-missing quantities.
func (s *StatisticsObserver) Observe(persons []*actor.Person, ctx operator.Contexts, asOf date.Date, dateIndex int) {
	momentsByName := s.moments[dateIndex]
	if momentsByName == nil {
		momentsByName = make(map[string]*runningMoments)
		s.moments[dateIndex] = momentsByName
	}
	covByPair := s.covariances[dateIndex]
	if covByPair == nil {
		covByPair = make(map[pairKey]*runningCovariance)
		s.covariances[dateIndex] = covByPair
	}
	var bufByName map[string][]float64
	if s.KeepMedians {
		bufByName = s.buffers[dateIndex]
		if bufByName == nil {
			bufByName = make(map[string][]float64)
			s.buffers[dateIndex] = bufByName
		}
	}

	names := sortedNames(s.Quantities)
	for _, p := range persons {
		values := make(map[string]float64, len(names))
		for _, name := range names {
			v, ok := s.Quantities[name](p, ctx, asOf)
			if !ok || math.IsNaN(v) {
				continue
			}
			values[name] = v

			m := momentsByName[name]
			if m == nil {
				m = &runningMoments{}
				momentsByName[name] = m
			}
			m.update(v)

			if bufByName != nil {
				bufByName[name] = append(bufByName[name], v)
			}
		}
		for i, a := range names {
			va, ok := values[a]
			if !ok {
				continue
			}
			for _, b := range names[i+1:] {
				vb, ok := values[b]
				if !ok {
					continue
				}
				key := pairKey{a, b}
				cov := covByPair[key]
				if cov == nil {
					cov = &runningCovariance{}
					covByPair[key] = cov
				}
				cov.update(va, vb)
			}
		}
	}
}

func sortedNames(quantities map[string]Quantity) []string {
	names := make([]string, 0, len(quantities))
	for name := range quantities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summarize returns the statistics for a named quantity at a date.
func (s *StatisticsObserver) Summarize(dateIndex int, name string) Summary {
	out := Summary{Mean: math.NaN(), Variance: math.NaN(), Skewness: math.NaN(), Kurtosis: math.NaN(), Min: math.NaN(), Max: math.NaN(), Median: math.NaN()}
	m := s.moments[dateIndex][name]
	if m == nil {
		return out
	}
	out.N = m.n
	out.Mean = m.mean
	out.Variance = m.variance()
	out.Skewness = m.skewness()
	out.Kurtosis = m.kurtosis()
	out.Min, out.Max = m.min, m.max
	if s.KeepMedians {
		if buf := s.buffers[dateIndex][name]; len(buf) > 0 {
			sorted := append([]float64(nil), buf...)
			sort.Float64s(sorted)
			out.Median = median(sorted)
		}
	}
	return out
}

// Covariance returns the covariance between two named quantities at a date.
func (s *StatisticsObserver) Covariance(dateIndex int, a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	byPair := s.covariances[dateIndex]
	if byPair == nil {
		return math.NaN()
	}
	cov := byPair[pairKey{a, b}]
	if cov == nil {
		return math.NaN()
	}
	return cov.covariance()
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
