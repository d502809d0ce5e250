package metrics

import (
	"sort"
	"strings"
)

// medianInts returns the median of values. An even-length input
// averages the two middle values; an empty input yields 0.
func medianInts(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	if n%2 == 0 {
		return float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	return float64(sorted[n/2])
}

// meanInts returns the arithmetic mean of values, 0 for empty input.
func meanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
