package calendar

import (
	"fmt"
	"time"
)

// TimeWindow is the inclusive range [Start, End] sent to the provider.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s - %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Today spans the local calendar day containing now: [midnight, next midnight).
func Today(now time.Time, loc *time.Location) TimeWindow {
	start := startOfDay(now, loc)
	return TimeWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// NextWeek starts at local midnight of the next Tuesday strictly after today
// and ends six days later at 23:59:59.999 local time. On a Tuesday it starts
// a full week ahead.
func NextWeek(now time.Time, loc *time.Location) TimeWindow {
	today := startOfDay(now, loc)
	days := (int(time.Tuesday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	start := time.Date(today.Year(), today.Month(), today.Day()+days, 0, 0, 0, 0, loc)
	end := time.Date(start.Year(), start.Month(), start.Day()+6, 23, 59, 59, int(999*time.Millisecond), loc)
	return TimeWindow{Start: start, End: end}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	day := t.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}
