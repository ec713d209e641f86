package workclock

import (
	"fmt"
	"time"
)

const zeroElapsed = "00:00:00"

// Elapsed formats the time since lastCheckIn as HH:MM:SS.
//
// The check-in carries no date: it is placed on now's day in now's location,
// and a check-in later than now belongs to the previous day. Hours wrap at 24.
// An empty or unparsable check-in yields 00:00:00.
func Elapsed(now time.Time, lastCheckIn string) string {
	t, err := time.Parse(TimeLayout, lastCheckIn)
	if err != nil {
		return zeroElapsed
	}

	start := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, now.Location())
	if start.After(now) {
		start = start.AddDate(0, 0, -1)
	}

	total := int(now.Sub(start) / time.Second)
	hours := (total / 3600) % 24
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
