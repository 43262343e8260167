package hostbench

import (
	"math"
	"sort"
)

// Aggregate reduces samples to summary statistics in milliseconds. The
// standard deviation is that of the population. Fastest and Slowest come from
// a stable sort by elapsed time, so among equal samples the first to arrive
// is the fastest and the last to arrive is the slowest.
func Aggregate(samples []TimingSample) (*Summary, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	durations := make([]float64, len(samples))

	min := math.Inf(1)
	max := math.Inf(-1)

	var sum float64

	for i, s := range samples {
		d := s.Milliseconds()
		durations[i] = d

		min = math.Min(min, d)
		max = math.Max(max, d)
		sum += d
	}

	n := float64(len(durations))
	mean := sum / n

	var sq float64
	for _, d := range durations {
		sq += (d - mean) * (d - mean)
	}

	sort.Float64s(durations)

	ordered := make([]TimingSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Elapsed < ordered[j].Elapsed
	})

	return &Summary{
		Count:          len(samples),
		Sum:            sum,
		Min:            min,
		Max:            max,
		Mean:           mean,
		Median:         median(durations),
		StdDev:         math.Sqrt(sq / n),
		Percentile95th: percentile(durations, 95),
		Percentile99th: percentile(durations, 99),
		Fastest:        ordered[0],
		Slowest:        ordered[len(ordered)-1],
	}, nil
}

// median expects sorted, non empty data.
func median(data []float64) float64 {
	n := len(data)
	if n%2 == 1 {
		return data[n/2]
	}

	return (data[n/2-1] + data[n/2]) / 2
}

const (
	maxPercentile = 100
	minPercentile = 0
)

// percentile interpolates linearly between the closest ranks of sorted data.
func percentile(data []float64, p float64) float64 {
	if p < minPercentile || p > maxPercentile || len(data) == 0 {
		return math.NaN()
	}

	if len(data) == 1 {
		return data[0]
	}

	n := float64(len(data))

	rank := (p/100)*(n-1) + 1
	ri := float64(int64(rank))
	rf := rank - ri
	i := int(ri) - 1

	if i >= len(data)-1 {
		return data[len(data)-1]
	}

	return data[i] + rf*(data[i+1]-data[i])
}
