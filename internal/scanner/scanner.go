// Package scanner ranks instruments by their percent change over a window.
package scanner

import (
	"sort"
	"time"

	"trading-signals/internal/model"
)

// Change is the first-to-last move of one instrument.
type Change struct {
	Symbol  string    `json:"symbol"`
	FirstTS time.Time `json:"first_ts"`
	LastTS  time.Time `json:"last_ts"`
	First   float64   `json:"first"`
	Last    float64   `json:"last"`
	Pct     float64   `json:"pct"`
}

// PercentChange returns (last - first) / first * 100 over the series.
func PercentChange(series model.PriceSeries) (Change, error) {
	if series.Len() == 0 {
		return Change{}, &model.InsufficientDataError{Indicator: "CHANGE", Required: 1, Available: 0}
	}
	first := series.Points[0]
	last := series.Points[series.Len()-1]
	if !(first.Close > 0) {
		return Change{}, &model.InvalidPriceError{Index: 0, TS: first.TS, Price: first.Close, Reason: "first price must be positive"}
	}
	return Change{
		Symbol:  series.Symbol,
		FirstTS: first.TS,
		LastTS:  last.TS,
		First:   first.Close,
		Last:    last.Close,
		Pct:     (last.Close - first.Close) / first.Close * 100,
	}, nil
}

// Movers returns up to n gainers (largest change first) and up to n losers
// (negative changes only, most negative first). Ties keep symbol order.
// changes is not modified.
func Movers(changes []Change, n int) (gainers, losers []Change) {
	if n <= 0 || len(changes) == 0 {
		return nil, nil
	}

	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Pct != sorted[j].Pct {
			return sorted[i].Pct > sorted[j].Pct
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	gainers = append(gainers, sorted[:min(n, len(sorted))]...)

	for i := len(sorted) - 1; i >= 0 && len(losers) < n; i-- {
		if sorted[i].Pct >= 0 {
			break
		}
		losers = append(losers, sorted[i])
	}
	return gainers, losers
}

// Skipped records an instrument left out of a scan.
type Skipped struct {
	Symbol string
	Err    error
}

// Result is a complete scan.
type Result struct {
	Changes []Change
	Gainers []Change
	Losers  []Change
	Skipped []Skipped
}

// Scan computes the change of every series and ranks them. Series without a
// usable first price are reported in Skipped instead of failing the scan.
func Scan(series []model.PriceSeries, n int) Result {
	var res Result
	for _, s := range series {
		c, err := PercentChange(s)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Symbol: s.Symbol, Err: err})
			continue
		}
		res.Changes = append(res.Changes, c)
	}
	res.Gainers, res.Losers = Movers(res.Changes, n)
	return res
}
