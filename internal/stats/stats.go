// Package stats summarizes how large LEGO parts are by the diameter of the
// smallest sphere that holds their packaging.
package stats

import (
	"errors"
	"math"
	"sort"

	"github.com/lepinkainen/brickmass/internal/parts"
)

var (
	// ErrNoSamples is returned when no part has usable dimensions.
	ErrNoSamples = errors.New("no valid sphere diameters found")
	// ErrZeroWeight is returned when every sample has weight zero.
	ErrZeroWeight = errors.New("sample weights sum to zero")
)

// ReportedPercentiles are the weighted percentiles included in a Summary.
var ReportedPercentiles = []int{25, 50, 75, 90, 95}

// Sample is one part's sphere diameter (mm) and its weight in the distribution.
type Sample struct {
	ID       string
	Diameter float64
	Weight   float64
}

// Percentile is a weighted percentile value.
type Percentile struct {
	P     int     `yaml:"p"`
	Value float64 `yaml:"value"`
}

// Summary holds the weighted statistics of a set of samples.
type Summary struct {
	N            int          `yaml:"n"`
	WeightByRank bool         `yaml:"weight_by_rank"`
	Mean         float64      `yaml:"mean"`
	StdDev       float64      `yaml:"sd"`
	Median       float64      `yaml:"median"`
	Min          float64      `yaml:"min"`
	Max          float64      `yaml:"max"`
	Percentiles  []Percentile `yaml:"percentiles"`
}

// SphereDiameter returns the diagonal, in millimetres, of a box measured in
// centimetres. It is the diameter of the smallest sphere containing the box.
func SphereDiameter(xCM, yCM, zCM float64) float64 {
	x, y, z := xCM*10, yCM*10, zCM*10
	return math.Sqrt(x*x + y*y + z*z)
}

// Samples turns parts with three non-zero dimensions into samples. Every
// sample weighs 1 unless weightByRank is set, in which case it weighs
// 1/overall_rank (0 for unranked parts).
func Samples(pieces []parts.Part, weightByRank bool) []Sample {
	samples := make([]Sample, 0, len(pieces))
	for _, p := range pieces {
		if !p.HasDimensions() {
			continue
		}

		weight := 1.0
		if weightByRank {
			weight = 0
			if p.OverallRank > 0 {
				weight = 1 / float64(p.OverallRank)
			}
		}

		samples = append(samples, Sample{
			ID:       p.ID,
			Diameter: SphereDiameter(*p.PackDimX, *p.PackDimY, *p.PackDimZ),
			Weight:   weight,
		})
	}
	return samples
}

// Compute calculates the weighted summary of samples. The input is not modified.
func Compute(samples []Sample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}

	sorted := sortedByDiameter(samples)

	var total, weighted float64
	for _, s := range sorted {
		total += s.Weight
		weighted += s.Weight * s.Diameter
	}
	if total <= 0 {
		return Summary{}, ErrZeroWeight
	}
	mean := weighted / total

	var variance float64
	for _, s := range sorted {
		d := s.Diameter - mean
		variance += s.Weight * d * d
	}
	variance /= total

	summary := Summary{
		N:      len(sorted),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Median: weightedPercentile(sorted, total, 50),
		Min:    sorted[0].Diameter,
		Max:    sorted[len(sorted)-1].Diameter,
	}
	for _, p := range ReportedPercentiles {
		summary.Percentiles = append(summary.Percentiles, Percentile{
			P:     p,
			Value: weightedPercentile(sorted, total, float64(p)),
		})
	}

	return summary, nil
}

// WeightedPercentile returns the first diameter, in ascending order, at which
// the cumulative weight reaches p percent of the total weight.
func WeightedPercentile(samples []Sample, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := sortedByDiameter(samples)
	var total float64
	for _, s := range sorted {
		total += s.Weight
	}
	return weightedPercentile(sorted, total, p)
}

func weightedPercentile(sorted []Sample, total, p float64) float64 {
	target := total * p / 100
	var cum float64
	for _, s := range sorted {
		cum += s.Weight
		if cum >= target {
			return s.Diameter
		}
	}
	return sorted[len(sorted)-1].Diameter
}

func sortedByDiameter(samples []Sample) []Sample {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Diameter < sorted[j].Diameter
	})
	return sorted
}

// Histogram is a weighted histogram with equal-width bins.
type Histogram struct {
	Min    float64
	Max    float64
	Counts []float64
}

// Width returns the width of one bin.
func (h Histogram) Width() float64 {
	if len(h.Counts) == 0 {
		return 0
	}
	return (h.Max - h.Min) / float64(len(h.Counts))
}

// MaxCount returns the largest bin value.
func (h Histogram) MaxCount() float64 {
	var m float64
	for _, c := range h.Counts {
		m = math.Max(m, c)
	}
	return m
}

// NewHistogram bins samples between their smallest and largest diameter.
// When every diameter is equal the range is widened by 0.5 on each side.
func NewHistogram(samples []Sample, bins int) Histogram {
	if bins <= 0 {
		bins = 1
	}
	h := Histogram{Counts: make([]float64, bins)}
	if len(samples) == 0 {
		return h
	}

	h.Min, h.Max = samples[0].Diameter, samples[0].Diameter
	for _, s := range samples[1:] {
		h.Min = math.Min(h.Min, s.Diameter)
		h.Max = math.Max(h.Max, s.Diameter)
	}
	if h.Min == h.Max {
		h.Min -= 0.5
		h.Max += 0.5
	}

	width := h.Width()
	for _, s := range samples {
		i := int((s.Diameter - h.Min) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Counts[i] += s.Weight
	}
	return h
}
