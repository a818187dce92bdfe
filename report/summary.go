package report

import (
	"math"
	"sort"

	consensus "github.com/swdee/go-consensus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the score distribution of a group of records
type Summary struct {
	Key    string
	Count  int
	Mean   float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Histogram holds binned values, Dividers has one more entry than Counts
type Histogram struct {
	Key      string
	Dividers []float64
	Counts   []float64
}

// ByAnnotator summarises scores per creator email
func ByAnnotator(t *consensus.Table) []Summary {
	return summarise(t.Records, func(r consensus.Record) string { return r.CreatorEmail })
}

// ByProject summarises scores per project
func ByProject(t *consensus.Table) []Summary {
	return summarise(t.Records, func(r consensus.Record) string { return r.ProjectID })
}

// ByClass summarises scores per class name
func ByClass(t *consensus.Table) []Summary {
	return summarise(t.Records, func(r consensus.Record) string { return r.ClassName })
}

// summarise groups record scores by key, results are ordered by key
func summarise(records []consensus.Record, key func(consensus.Record) string) []Summary {

	groups := make(map[string][]float64)

	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r.Score)
	}

	keys := make([]string, 0, len(groups))

	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]Summary, 0, len(keys))

	for _, k := range keys {
		out = append(out, Summarize(k, groups[k]))
	}

	return out
}

// Summarize computes the distribution of values, values is sorted in place
func Summarize(key string, values []float64) Summary {

	s := Summary{Key: key, Count: len(values)}

	if len(values) == 0 {
		return s
	}

	sort.Float64s(values)

	s.Mean = stat.Mean(values, nil)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Q1 = stat.Quantile(0.25, stat.Empirical, values, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	s.Q3 = stat.Quantile(0.75, stat.Empirical, values, nil)

	return s
}

// AreaHistograms bins instance areas per class into the given number of
// equal width bins spanning that class's area range
func AreaHistograms(t *consensus.Table, bins int) []Histogram {

	if bins < 1 {
		bins = 1
	}

	groups := make(map[string][]float64)

	for _, r := range t.Records {
		groups[r.ClassName] = append(groups[r.ClassName], r.Area)
	}

	keys := make([]string, 0, len(groups))

	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]Histogram, 0, len(keys))

	for _, k := range keys {
		out = append(out, histogram(k, groups[k], bins))
	}

	return out
}

func histogram(key string, values []float64, bins int) Histogram {

	sort.Float64s(values)

	lo := values[0]
	hi := values[len(values)-1]

	if hi == lo {
		hi = lo + 1
	}

	dividers := floats.Span(make([]float64, bins+1), lo, hi)

	// the last bin is half open so its upper edge must sit above the maximum
	dividers[bins] = math.Nextafter(dividers[bins], math.Inf(1))

	return Histogram{
		Key:      key,
		Dividers: dividers,
		Counts:   stat.Histogram(nil, dividers, values, nil),
	}
}
