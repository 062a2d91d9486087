package utils

import "time"

// ChinaLocation is the timezone for mainland Chinese markets.
var ChinaLocation *time.Location

func init() {
	var err error
	ChinaLocation, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		ChinaLocation = time.FixedZone("CST", 8*60*60)
	}
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modelled; providers simply return stale data on those days.
func IsTradingDay(t time.Time) bool {
	wd := t.In(ChinaLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpen reports whether the A-share market is in a trading session
// (9:30-11:30 or 13:00-15:00 CST on weekdays).
func IsMarketOpen(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	local := t.In(ChinaLocation)
	minutes := local.Hour()*60 + local.Minute()

	morning := minutes >= 9*60+30 && minutes < 11*60+30
	afternoon := minutes >= 13*60 && minutes < 15*60
	return morning || afternoon
}

// NextMarketOpen returns the next session open at or after t.
func NextMarketOpen(t time.Time) time.Time {
	local := t.In(ChinaLocation)
	next := time.Date(local.Year(), local.Month(), local.Day(), 9, 30, 0, 0, ChinaLocation)
	if local.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
