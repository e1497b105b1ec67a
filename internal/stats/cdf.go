package stats

// Point is one step of an empirical CDF.
type Point struct {
	Value    float64 `json:"value"`
	Fraction float64 `json:"fraction"`
}

// Curve is an empirical CDF: strictly increasing in Value, ending at 1.0.
type Curve []Point

// CDF builds the empirical cumulative distribution of values. Equal values
// collapse into a single point carrying the fraction of samples at or below it.
func CDF(values []float64) (Curve, error) {
	if len(values) == 0 {
		return nil, ErrEmptyDataset
	}

	s := sorted(values)
	n := float64(len(s))
	curve := make(Curve, 0, len(s))

	previous := s[0]
	for i, v := range s {
		if v != previous {
			curve = append(curve, Point{Value: previous, Fraction: float64(i) / n})
			previous = v
		}
	}
	curve = append(curve, Point{Value: previous, Fraction: 1.0})

	return curve, nil
}

// XY splits the curve into value and fraction slices.
func (c Curve) XY() (xs, ys []float64) {
	xs = make([]float64, len(c))
	ys = make([]float64, len(c))
	for i, p := range c {
		xs[i] = p.Value
		ys[i] = p.Fraction
	}
	return xs, ys
}
