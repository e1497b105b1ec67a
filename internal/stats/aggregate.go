package stats

// AggregateStats summarizes one sample kind.
type AggregateStats struct {
	Count   int      `json:"count"`
	Median  float64  `json:"median"`
	Mean    *float64 `json:"mean,omitempty"`
	P0      float64  `json:"p0"`
	P25     float64  `json:"p25"`
	P50     float64  `json:"p50"`
	P75     float64  `json:"p75"`
	P90     float64  `json:"p90"`
	P99     float64  `json:"p99"`
	P100    float64  `json:"p100"`
	Trimean float64  `json:"trimean"`
}

// Aggregate computes AggregateStats over values. Pure function, no side effects.
func Aggregate(values []float64) (AggregateStats, error) {
	if len(values) == 0 {
		return AggregateStats{}, ErrEmptyDataset
	}

	s := sorted(values)
	mean, _ := Mean(s)

	a := AggregateStats{Count: len(s), Mean: &mean}
	for i, field := range a.percentileFields() {
		*field = percentileSorted(s, Quantiles[i])
	}
	a.Median = a.P50
	a.Trimean = (a.P25 + 2*a.P50 + a.P75) / 4
	return a, nil
}

// Percentiles returns the reported quantiles in Quantiles order.
func (a AggregateStats) Percentiles() []float64 {
	fields := a.percentileFields()
	values := make([]float64, len(fields))
	for i, f := range fields {
		values[i] = *f
	}
	return values
}

// percentileFields lists the percentile fields in Quantiles order.
func (a *AggregateStats) percentileFields() []*float64 {
	return []*float64{&a.P0, &a.P25, &a.P50, &a.P75, &a.P90, &a.P99, &a.P100}
}
