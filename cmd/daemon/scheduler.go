package main

import (
	"time"

	"github.com/scmhub/calendar"
)

// Scheduler gates scan runs on NYSE trading days and regular session hours.
type Scheduler struct {
	location *time.Location
	nyse     *calendar.Calendar
}

func NewScheduler(timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		location: loc,
		nyse:     calendar.XNYS(),
	}
}

// ShouldRun reports whether a scan should run now: a business day, between
// 09:30 and 16:00 in the configured timezone.
func (s *Scheduler) ShouldRun(now time.Time) bool {
	now = now.In(s.location)
	if !s.nyse.IsBusinessDay(now) {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured
// timezone.
func (s *Scheduler) TodayDate() string {
	return time.Now().In(s.location).Format("2006-01-02")
}
