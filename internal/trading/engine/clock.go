package engine

import (
	"time"

	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// MarketClock reports whether the market accepts orders at a given time.
type MarketClock interface {
	IsOpen(t time.Time) bool
}

// AlwaysOpen is the clock of markets that never close.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool {
	return true
}

// USEquityClock follows US equity hours expressed in UTC. Bounds are inclusive.
// Weekends are closed.
//
//	pre-market   12:00 - 13:30
//	regular      13:30 - 20:00
//	after hours  20:00 - 22:30
type USEquityClock struct {
	ExtendedHours bool
}

// IsPreMarket reports whether t falls in the pre-market session.
func (USEquityClock) IsPreMarket(t time.Time) bool {
	return between(t, 12, 0, 13, 30)
}

// IsRegularOpen reports whether t falls in the regular session.
func (USEquityClock) IsRegularOpen(t time.Time) bool {
	return between(t, 13, 30, 20, 0)
}

// IsAfterHours reports whether t falls in the after-hours session.
func (USEquityClock) IsAfterHours(t time.Time) bool {
	return between(t, 20, 0, 22, 30)
}

// IsOpen reports whether t is in the regular session, or in any session when
// ExtendedHours is set.
func (c USEquityClock) IsOpen(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	if c.IsRegularOpen(t) {
		return true
	}

	return c.ExtendedHours && (c.IsPreMarket(t) || c.IsAfterHours(t))
}

func between(t time.Time, startHour, startMinute, endHour, endMinute int) bool {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMinute)*time.Minute)
	end := day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMinute)*time.Minute)

	return !t.Before(start) && !t.After(end)
}

// Market clock names accepted by NewMarketClock.
const (
	ClockAlways           = "always"
	ClockUSEquity         = "us-equity"
	ClockUSEquityExtended = "us-equity-extended"
)

// NewMarketClock returns the clock registered under name.
func NewMarketClock(name string) (MarketClock, error) {
	switch name {
	case ClockAlways, "":
		return AlwaysOpen{}, nil
	case ClockUSEquity:
		return USEquityClock{ExtendedHours: false}, nil
	case ClockUSEquityExtended:
		return USEquityClock{ExtendedHours: true}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown market clock %q", name)
	}
}
