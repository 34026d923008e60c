package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"trading-signals/internal/indicator"
	"trading-signals/internal/model"
)

// WriteRollingCSV writes daily percent returns with their rolling mean and
// sample standard deviation over window bars. Undefined cells are empty.
// Series too short for the window are skipped and returned.
func WriteRollingCSV(w io.Writer, series []model.PriceSeries, window int) (skipped []string, err error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "date", "close", "return_pct", "mean_pct", "std_pct"}); err != nil {
		return nil, err
	}
	for _, s := range series {
		ret, err := indicator.DailyReturns(s)
		if err != nil {
			return skipped, err
		}
		mean, err := indicator.RollingMean(ret, window)
		if err != nil {
			skipped = append(skipped, s.Symbol)
			continue
		}
		std, err := indicator.RollingStdDev(ret, window)
		if err != nil {
			skipped = append(skipped, s.Symbol)
			continue
		}
		for i, p := range s.Points {
			rec := []string{s.Symbol, date(p.TS), ftoa(p.Close, 4),
				cell(ret.Points[i].Value), cell(mean.Points[i].Value), cell(std.Points[i].Value)}
			if err := cw.Write(rec); err != nil {
				return skipped, err
			}
		}
	}
	cw.Flush()
	return skipped, cw.Error()
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
