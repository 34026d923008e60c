// Package performance scores a trade ledger: per-trade returns, compounded
// return, absolute P/L and drawdown.
package performance

import (
	"github.com/shopspring/decimal"

	"trading-signals/internal/model"
)

// TradeResult is one scored trade.
type TradeResult struct {
	Index  int         `json:"index"` // position in the ledger
	Trade  model.Trade `json:"trade"`
	Return float64     `json:"return"` // exit/entry - 1
	PL     float64     `json:"pl"`     // exit - entry, per unit
}

// ReturnPct returns the trade return as a percentage.
func (r TradeResult) ReturnPct() float64 { return r.Return * 100 }

// Report summarizes a ledger.
type Report struct {
	Trades              []TradeResult              `json:"trades"`
	CumulativeReturnPct float64                    `json:"cumulative_return_pct"`
	TotalPL             float64                    `json:"total_pl"`
	Wins                int                        `json:"wins"`
	Losses              int                        `json:"losses"`
	MaxDrawdownPct      float64                    `json:"max_drawdown_pct"`
	Rejected            []*model.InvalidPriceError `json:"-"`
}

// WinRate returns wins over scored trades, or 0 with no trades.
func (r Report) WinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	return float64(r.Wins) / float64(len(r.Trades))
}

// TradeReturn returns exit/entry - 1. Both prices must be positive.
func TradeReturn(t model.Trade) (float64, error) {
	return tradeReturn(0, t)
}

func tradeReturn(i int, t model.Trade) (float64, error) {
	if !(t.EntryPrice > 0) {
		return 0, &model.InvalidPriceError{Index: i, TS: t.EntryTS, Price: t.EntryPrice, Reason: "entry price must be positive"}
	}
	if !(t.ExitPrice > 0) {
		return 0, &model.InvalidPriceError{Index: i, TS: t.EntryTS, Price: t.ExitPrice, Reason: "exit price must be positive"}
	}
	return t.ExitPrice/t.EntryPrice - 1, nil
}

// Evaluator scores ledgers. In strict mode the first trade with a
// non-positive price fails the evaluation; otherwise it is reported in
// Report.Rejected and left out of every aggregate.
type Evaluator struct {
	Strict bool
}

// NewEvaluator creates an evaluator.
func NewEvaluator(strict bool) *Evaluator {
	return &Evaluator{Strict: strict}
}

// Evaluate compounds the ledger in order. An empty ledger yields a zero report.
func (e *Evaluator) Evaluate(ledger model.Ledger) (Report, error) {
	rep := Report{Trades: make([]TradeResult, 0, len(ledger))}

	equity, peak := 1.0, 1.0
	pl := decimal.Zero

	for i, t := range ledger {
		r, err := tradeReturn(i, t)
		if err != nil {
			if e.Strict {
				return Report{}, err
			}
			rep.Rejected = append(rep.Rejected, err.(*model.InvalidPriceError))
			continue
		}

		tradePL := decimal.NewFromFloat(t.ExitPrice).Sub(decimal.NewFromFloat(t.EntryPrice))
		pl = pl.Add(tradePL)

		rep.Trades = append(rep.Trades, TradeResult{
			Index:  i,
			Trade:  t,
			Return: r,
			PL:     tradePL.InexactFloat64(),
		})
		switch {
		case r > 0:
			rep.Wins++
		case r < 0:
			rep.Losses++
		}

		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak * 100; dd > rep.MaxDrawdownPct {
			rep.MaxDrawdownPct = dd
		}
	}

	rep.CumulativeReturnPct = (equity - 1) * 100
	rep.TotalPL = pl.InexactFloat64()
	return rep, nil
}
