// Package report renders batch results for people: a console table and CSV
// exports of trades, per-symbol summaries and movers.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"trading-signals/internal/backtest"
	"trading-signals/internal/model"
	"trading-signals/internal/scanner"
)

func ftoa(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

func date(t time.Time) string { return t.Format(time.DateOnly) }

// WriteConsole prints one row per symbol followed by a batch footer.
func WriteConsole(w io.Writer, batch *backtest.Batch) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tBARS\tTRADES\tWINS\tLOSSES\tRETURN %\tP/L\tMAX DD %\tLAST\t")
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t-\terror: %v\t\n", r.Symbol, r.Err)
			continue
		}
		rep := r.Result.Report
		last := "-"
		if ev, ok := r.Result.LastEvent(); ok {
			last = ev.Direction.String() + " " + date(ev.TS)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			r.Symbol, r.Result.Series.Len(), len(rep.Trades), rep.Wins, rep.Losses,
			ftoa(rep.CumulativeReturnPct, 2), ftoa(rep.TotalPL, 2), ftoa(rep.MaxDrawdownPct, 2), last)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nrun %s: %d symbols, %d failed, %s\n",
		batch.RunID, len(batch.Results), batch.Failed(), batch.FinishedAt.Sub(batch.StartedAt).Round(time.Millisecond))
	return err
}

// WriteTradesCSV writes every evaluated trade of every successful symbol.
func WriteTradesCSV(w io.Writer, batch *backtest.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "trade", "entry_date", "entry_price", "exit_date", "exit_price", "return_pct", "pl", "forced_exit"}); err != nil {
		return err
	}
	for _, r := range batch.Succeeded() {
		for _, tr := range r.Result.Report.Trades {
			rec := []string{
				r.Symbol,
				strconv.Itoa(tr.Index + 1),
				date(tr.Trade.EntryTS),
				ftoa(tr.Trade.EntryPrice, 4),
				date(tr.Trade.ExitTS),
				ftoa(tr.Trade.ExitPrice, 4),
				ftoa(tr.ReturnPct(), 4),
				ftoa(tr.PL, 4),
				strconv.FormatBool(tr.Trade.ForcedExit),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per summary.
func WriteSummaryCSV(w io.Writer, sums []model.AnalysisSummary) error {
	cw := csv.NewWriter(w)
	header := []string{"run_id", "symbol", "strategy", "from", "to", "bars", "events", "trades",
		"wins", "losses", "rejected", "cumulative_return_pct", "total_pl", "max_drawdown_pct",
		"in_position", "last_event", "last_event_date"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range sums {
		lastDir, lastDate := "", ""
		if s.LastEvent != nil {
			lastDir, lastDate = s.LastEvent.Direction.String(), date(s.LastEvent.TS)
		}
		rec := []string{
			s.RunID, s.Symbol, s.Strategy, date(s.From), date(s.To),
			strconv.Itoa(s.Bars), strconv.Itoa(s.Events), strconv.Itoa(s.Trades),
			strconv.Itoa(s.Wins), strconv.Itoa(s.Losses), strconv.Itoa(s.Rejected),
			ftoa(s.CumulativeReturnPct, 4), ftoa(s.TotalPL, 4), ftoa(s.MaxDrawdownPct, 4),
			strconv.FormatBool(s.InPosition), lastDir, lastDate,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMoversCSV writes gainers then losers with their rank.
func WriteMoversCSV(w io.Writer, res scanner.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"side", "rank", "symbol", "first_date", "first", "last_date", "last", "change_pct"}); err != nil {
		return err
	}
	write := func(side string, changes []scanner.Change) error {
		for i, c := range changes {
			rec := []string{side, strconv.Itoa(i + 1), c.Symbol, date(c.FirstTS), ftoa(c.First, 4),
				date(c.LastTS), ftoa(c.Last, 4), ftoa(c.Pct, 4)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("gainer", res.Gainers); err != nil {
		return err
	}
	if err := write("loser", res.Losers); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes trades.csv, summary.csv and, when movers is non-nil,
// movers.csv into dir. Returns the paths written.
func WriteFiles(dir string, batch *backtest.Batch, movers *scanner.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write("trades.csv", func(w io.Writer) error { return WriteTradesCSV(w, batch) }); err != nil {
		return written, err
	}
	if err := write("summary.csv", func(w io.Writer) error { return WriteSummaryCSV(w, batch.Summaries()) }); err != nil {
		return written, err
	}
	if movers != nil {
		if err := write("movers.csv", func(w io.Writer) error { return WriteMoversCSV(w, *movers) }); err != nil {
			return written, err
		}
	}
	return written, nil
}
