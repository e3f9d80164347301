package keyhist

import "github.com/aclements/go-moremath/stats"

// Descriptive statistics of one sample set. Values that are undefined for the
// sample (everything on an empty set, StdDev of a single value) are 0.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sample := stats.Sample{Xs: values}
	min, max := sample.Bounds()

	return Summary{
		Count:  len(values),
		Min:    finiteOrZero(min),
		Max:    finiteOrZero(max),
		Mean:   finiteOrZero(sample.Mean()),
		StdDev: finiteOrZero(sample.StdDev()),
		Median: finiteOrZero(sample.Quantile(0.5)),
	}
}
