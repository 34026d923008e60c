// Package markethours models an exchange session calendar: trading days,
// holidays and the daily close, used to schedule end-of-day analysis runs.
package markethours

import (
	"fmt"
	"strings"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE session times in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// Config describes a calendar. Zero fields fall back to NSE values.
type Config struct {
	Exchange string   `mapstructure:"exchange"` // "NSE" pulls in the built-in holiday list
	Timezone string   `mapstructure:"timezone"` // IANA name, or "IST"
	Open     string   `mapstructure:"open"`     // "HH:MM"
	Close    string   `mapstructure:"close"`    // "HH:MM"
	Holidays []string `mapstructure:"holidays"` // extra closures, "YYYY-MM-DD"
}

// Calendar answers session questions for one exchange.
type Calendar struct {
	loc      *time.Location
	openMin  int // minutes after midnight
	closeMin int
	holidays map[string]bool
	exchange string
}

// NSE returns the default NSE calendar.
func NSE() *Calendar {
	c := &Calendar{
		loc:      IST,
		openMin:  OpenHour*60 + OpenMinute,
		closeMin: CloseHour*60 + CloseMinute,
		holidays: make(map[string]bool, len(nseHolidays)),
		exchange: "NSE",
	}
	for _, h := range nseHolidays {
		c.holidays[h] = true
	}
	return c
}

// New builds a calendar from cfg.
func New(cfg Config) (*Calendar, error) {
	c := NSE()
	if cfg.Exchange != "" && !strings.EqualFold(cfg.Exchange, "NSE") {
		c.holidays = make(map[string]bool)
		c.exchange = strings.ToUpper(cfg.Exchange)
	}

	switch cfg.Timezone {
	case "", "IST":
	default:
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
		}
		c.loc = loc
	}

	var err error
	if cfg.Open != "" {
		if c.openMin, err = parseHM(cfg.Open); err != nil {
			return nil, err
		}
	}
	if cfg.Close != "" {
		if c.closeMin, err = parseHM(cfg.Close); err != nil {
			return nil, err
		}
	}
	if c.closeMin <= c.openMin {
		return nil, fmt.Errorf("session close %s must follow open", fmtHM(c.closeMin))
	}

	for _, h := range cfg.Holidays {
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		c.holidays[d.Format(time.DateOnly)] = true
	}
	return c, nil
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Exchange returns the exchange name.
func (c *Calendar) Exchange() string { return c.exchange }

// IsHoliday returns true if the exchange-local date of t is a listed holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	return c.holidays[t.In(c.loc).Format(time.DateOnly)]
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	wd := local.Weekday()
	return wd >= time.Monday && wd <= time.Friday && !c.IsHoliday(local)
}

// IsOpen returns true if t falls within the session on a trading day.
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsTradingDay(local) {
		return false
	}
	hm := local.Hour()*60 + local.Minute()
	return hm >= c.openMin && hm < c.closeMin
}

// SessionClose returns the close time on t's exchange-local date.
func (c *Calendar) SessionClose(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.closeMin/60, c.closeMin%60, 0, 0, c.loc)
}

// NextClose returns the first session close strictly after t.
func (c *Calendar) NextClose(t time.Time) time.Time {
	cl := c.SessionClose(t)
	if c.IsTradingDay(cl) && cl.After(t) {
		return cl
	}
	d := cl.AddDate(0, 0, 1)
	for i := 0; i < 30; i++ { // weekends plus holiday clusters
		if c.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// LastCompletedSession returns the date (midnight UTC) of the most recent
// trading day whose close is at or before t.
func (c *Calendar) LastCompletedSession(t time.Time) time.Time {
	cl := c.SessionClose(t)
	if !(c.IsTradingDay(cl) && !cl.After(t)) {
		cl = cl.AddDate(0, 0, -1)
		for i := 0; i < 30 && !c.IsTradingDay(cl); i++ {
			cl = cl.AddDate(0, 0, -1)
		}
	}
	return time.Date(cl.Year(), cl.Month(), cl.Day(), 0, 0, 0, 0, time.UTC)
}

// StatusString returns a human-readable session status.
func (c *Calendar) StatusString(t time.Time) string {
	if c.IsOpen(t) {
		return fmt.Sprintf("%s open, closes in %s", c.exchange, fmtDur(c.SessionClose(t).Sub(t)))
	}
	next := c.NextClose(t).In(c.loc)
	return fmt.Sprintf("%s closed, next close %s %s (%s)",
		c.exchange, next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func parseHM(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("session time %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func fmtHM(m int) string { return fmt.Sprintf("%02d:%02d", m/60, m%60) }

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
