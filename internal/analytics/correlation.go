package analytics

import "math"

// CorrelationColumns are the numeric read-contract columns compared pairwise.
var CorrelationColumns = []string{"delivery_days", "delay_days", "freight_value", "price", "quantity", "review_score"}

// Correlate returns the Pearson correlation matrix of CorrelationColumns over
// rows. Each pair uses only the rows where both values are present. A pair
// with fewer than two observations or a constant side is NaN.
func Correlate(rows []DeliveryRow) [][]float64 {
	vals := make([][]*float64, len(rows))
	for i, r := range rows {
		vals[i] = numeric(r)
	}
	n := len(CorrelationColumns)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := pearson(vals, i, j)
			out[i][j], out[j][i] = c, c
		}
	}
	return out
}

// numeric lays r out in CorrelationColumns order; nil marks an absent value.
func numeric(r DeliveryRow) []*float64 {
	f := func(v float64) *float64 { return &v }
	var review *float64
	if r.ReviewScore != nil {
		review = f(float64(*r.ReviewScore))
	}
	return []*float64{f(r.DeliveryDays), r.DelayDays, r.FreightValue, r.Price, f(float64(r.Quantity)), review}
}

func pearson(vals [][]*float64, i, j int) float64 {
	var n, sx, sy float64
	for _, v := range vals {
		if v[i] == nil || v[j] == nil {
			continue
		}
		n++
		sx += *v[i]
		sy += *v[j]
	}
	if n < 2 {
		return math.NaN()
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for _, v := range vals {
		if v[i] == nil || v[j] == nil {
			continue
		}
		dx, dy := *v[i]-mx, *v[j]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	if i == j {
		return 1
	}
	return cov / math.Sqrt(vx*vy)
}
