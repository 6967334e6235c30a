package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // venues resolve in America/New_York regardless of host zone data
)

// DateLayout is the calendar date format of shift records and date queries.
const DateLayout = "2006-01-02"

// Eastern is the zone every venue's wall-clock times are expressed in.
var Eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = Eastern
	}
	return now.In(loc).Format(DateLayout)
}

// parseClock reads "HH:MM" (seconds, if present, are ignored).
// Unparsable parts read as zero.
func parseClock(s string) (hour, minute int) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	hour, _ = strconv.Atoi(parts[0])
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return hour, minute
}

// onDate places a wall-clock time on the calendar day of day, in day's location.
func onDate(day time.Time, clock string) time.Time {
	h, m := parseClock(clock)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

// FormatTime converts "HH:MM" into "h:MM AM/PM". An empty input renders "--".
func FormatTime(clock string) string {
	if strings.TrimSpace(clock) == "" {
		return "--"
	}
	h, m := parseClock(clock)
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, ampm)
}
