package analytics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// Group is the mean delivery time of one slice of the rows.
type Group struct {
	Label string
	Rows  int
	Mean  float64
}

// Summary describes delivery performance over a set of rows.
type Summary struct {
	Rows int

	MeanDeliveryDays   float64
	MedianDeliveryDays float64
	P90DeliveryDays    float64

	// LateShare is the fraction of rows with a known delay that arrived
	// after the estimate.
	LateShare float64

	// Monthly is ordered by year and month; rows on the unknown date are
	// left out.
	Monthly         []Group
	ByCustomerState []Group
	BySellerState   []Group

	// Correlation is indexed by CorrelationColumns on both axes.
	Correlation [][]float64
}

// Summarize computes the delivery summary of rows.
func Summarize(rows []DeliveryRow) Summary {
	s := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		return s
	}

	days := make([]float64, len(rows))
	var sum float64
	var withDelay, late int
	monthly := newGrouper()
	byCustomer := newGrouper()
	bySeller := newGrouper()

	for i, r := range rows {
		days[i] = r.DeliveryDays
		sum += r.DeliveryDays
		if r.DelayDays != nil {
			withDelay++
			if *r.DelayDays > 0 {
				late++
			}
		}
		if r.Year != nil && r.Month != nil {
			monthly.add(fmt.Sprintf("%04d-%02d", *r.Year, *r.Month), r.DeliveryDays)
		}
		byCustomer.add(r.CustomerState, r.DeliveryDays)
		bySeller.add(r.SellerState, r.DeliveryDays)
	}

	sort.Float64s(days)
	s.MeanDeliveryDays = sum / float64(len(rows))
	s.MedianDeliveryDays = Quantile(days, 0.5)
	s.P90DeliveryDays = Quantile(days, 0.9)
	if withDelay > 0 {
		s.LateShare = float64(late) / float64(withDelay)
	}
	s.Monthly = monthly.groups()
	s.ByCustomerState = byCustomer.groups()
	s.BySellerState = bySeller.groups()
	s.Correlation = Correlate(rows)
	return s
}

// Quantile returns the q-th quantile of sorted, interpolating linearly
// between the two closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	switch n := len(sorted); {
	case n == 0:
		return 0
	case n == 1 || q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

type grouper struct {
	sum map[string]float64
	n   map[string]int
}

func newGrouper() *grouper {
	return &grouper{sum: make(map[string]float64), n: make(map[string]int)}
}

func (g *grouper) add(label string, v float64) {
	g.sum[label] += v
	g.n[label]++
}

// groups returns one Group per label, sorted by label.
func (g *grouper) groups() []Group {
	out := make([]Group, 0, len(g.n))
	for label, n := range g.n {
		out = append(out, Group{Label: label, Rows: n, Mean: g.sum[label] / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Print writes s as a console report.
func (s Summary) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Loaded %s rows with valid delivery_days.\n", humanize.Comma(int64(s.Rows)))
	if s.Rows == 0 {
		return tw.Flush()
	}
	fmt.Fprintf(tw, "delivery days\tmean %.2f\tmedian %.2f\tp90 %.2f\n",
		s.MeanDeliveryDays, s.MedianDeliveryDays, s.P90DeliveryDays)
	fmt.Fprintf(tw, "late deliveries\t%.1f%%\n", 100*s.LateShare)

	section := func(title string, groups []Group) {
		fmt.Fprintf(tw, "\n%s\trows\tavg days\n", title)
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\n", g.Label, humanize.Comma(int64(g.Rows)), g.Mean)
		}
	}
	section("month", s.Monthly)
	section("customer state", s.ByCustomerState)
	section("seller state", s.BySellerState)

	fmt.Fprintf(tw, "\ncorrelation\t%s\n", strings.Join(CorrelationColumns, "\t"))
	for i, col := range CorrelationColumns {
		fmt.Fprint(tw, col)
		for _, c := range s.Correlation[i] {
			fmt.Fprintf(tw, "\t%.2f", c)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
