package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) PriceSeries {
	s := PriceSeries{Symbol: "ACME", Points: make([]PricePoint, len(closes))}
	for i, c := range closes {
		s.Points[i] = PricePoint{TS: day0.AddDate(0, 0, i), Close: c}
	}
	return s
}

func TestPriceSeries_Validate(t *testing.T) {
	require.NoError(t, series().Validate())
	require.NoError(t, series(1, 2, 3).Validate())

	err := series(1, -2, 3).Validate()
	require.ErrorIs(t, err, ErrInvalidPrice)
	var ipe *InvalidPriceError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, 1, ipe.Index)
	assert.Equal(t, -2.0, ipe.Price)

	s := series(1, 2, 3)
	s.Points[2].TS = s.Points[1].TS
	require.ErrorIs(t, s.Validate(), ErrUnorderedSeries)
}

func TestPriceSeries_Accessors(t *testing.T) {
	s := series(5, 6)
	closes := s.Closes()
	closes[0] = 99
	assert.Equal(t, 5.0, s.Points[0].Close)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 6.0, last.Close)
	_, ok = series().Last()
	assert.False(t, ok)
}

func TestInsufficientDataError(t *testing.T) {
	err := error(&InsufficientDataError{Indicator: "SMA_20", Required: 20, Available: 3})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, "insufficient data for SMA_20: need 20 points, have 3", err.Error())
}

func TestLedger_Forced(t *testing.T) {
	l := Ledger{{}, {ForcedExit: true}}
	assert.Equal(t, 1, l.Forced())
	assert.Equal(t, 48*time.Hour, Trade{EntryTS: day0, ExitTS: day0.AddDate(0, 0, 2)}.Holding())
}

func TestAnalysisSummary_JSON(t *testing.T) {
	s := AnalysisSummary{
		Symbol:    "ACME",
		Strategy:  "SMA_2/SMA_4",
		LastEvent: &CrossEvent{Direction: Enter, Index: 4, TS: day0, Price: 12},
	}
	assert.Equal(t, "SMA_2/SMA_4:ACME", s.Key())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(s.JSON(), &out))
	ev := out["last_event"].(map[string]interface{})
	assert.Equal(t, "ENTER", ev["direction"])
	assert.Equal(t, 12.0, ev["price"])
}
