// Package status resolves whether a venue is open from its shifts for a date.
package status

import (
	"time"

	"mdining/internal/models"
)

// State is the machine-readable venue state.
type State string

const (
	StateOpen        State = "open"
	StateClosingSoon State = "closing_soon"
	StateClosed      State = "closed"
	StateFuture      State = "future"
	StatePast        State = "past"
)

const (
	// ClosingSoonWindow: an active shift with less time left than this is closing soon.
	ClosingSoonWindow = 30 * time.Minute
	// StartingSoonWindow: an upcoming best shift this close is not displaced by active shifts.
	StartingSoonWindow = 45 * time.Minute
)

// Status is the resolved state of a venue plus its display text.
type Status struct {
	State    State         `json:"state"`
	IsOpen   bool          `json:"is_open"`
	Label    string        `json:"label"`
	Color    string        `json:"color"`
	Details  string        `json:"details"`
	ClosesAt string        `json:"closes_at,omitempty"`
	Shift    *models.Shift `json:"shift,omitempty"`
}

// Resolver evaluates shifts in a fixed time zone. It holds no state between calls.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver for loc; nil means Eastern.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = Eastern
	}
	return &Resolver{loc: loc}
}

// Location returns the zone the resolver evaluates in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

var defaultResolver = NewResolver(Eastern)

// Resolve evaluates shifts in Eastern time.
func Resolve(shifts []models.Shift, targetDate string, now time.Time) Status {
	return defaultResolver.Resolve(shifts, targetDate, now)
}

// Resolve returns the venue status for targetDate as seen at now.
// Dates other than today short-circuit to Future or Past.
func (r *Resolver) Resolve(shifts []models.Shift, targetDate string, now time.Time) Status {
	local := now.In(r.loc)
	today := local.Format(DateLayout)
	if targetDate != today {
		return offDay(targetDate, today)
	}

	target := selectShift(shifts, local)
	if target == nil {
		return closed("Check Schedule", nil)
	}

	start := onDate(local, target.StartTime)
	end := onDate(local, target.EndTime)
	switch {
	case local.Before(start):
		return closed("Opens "+FormatTime(target.StartTime), target)
	case !local.Before(end):
		return closed("Closed for the day", target)
	}

	label := displayName(target.EventName)
	closesAt := FormatTime(target.EndTime)
	if end.Sub(local) < ClosingSoonWindow {
		return Status{
			State:    StateClosingSoon,
			IsOpen:   true,
			Label:    "Closing Soon",
			Color:    "orange",
			Details:  label + " ending at " + closesAt,
			ClosesAt: closesAt,
			Shift:    target,
		}
	}
	return Status{
		State:    StateOpen,
		IsOpen:   true,
		Label:    "Open",
		Color:    "green",
		Details:  label + " until " + closesAt,
		ClosesAt: closesAt,
		Shift:    target,
	}
}

// selectShift reduces the not-yet-ended shifts to one target. When every
// shift has ended the last listed shift is used for the closing message.
func selectShift(shifts []models.Shift, now time.Time) *models.Shift {
	best := -1
	for i := range shifts {
		if !now.Before(onDate(now, shifts[i].EndTime)) {
			continue
		}
		if best < 0 || prefer(&shifts[i], &shifts[best], now) {
			best = i
		}
	}
	if best < 0 {
		if len(shifts) == 0 {
			return nil
		}
		best = len(shifts) - 1
	}
	s := shifts[best]
	return &s
}

// prefer reports whether challenger s replaces the current best b.
func prefer(s, b *models.Shift, now time.Time) bool {
	sPri, bPri := Priority(s.EventName), Priority(b.EventName)
	sStart, bStart := onDate(now, s.StartTime), onDate(now, b.StartTime)
	sActive, bActive := !now.Before(sStart), !now.Before(bStart)
	bStartingSoon := !bActive && bStart.Sub(now) < StartingSoonWindow

	switch {
	case bStartingSoon && bPri < sPri:
		return false
	case sActive && !bActive && !bStartingSoon:
		return true
	case sActive == bActive && sPri < bPri:
		return true
	case !sActive && !bActive && sStart.Before(bStart):
		return true
	}
	return false
}

func closed(details string, shift *models.Shift) Status {
	return Status{
		State:   StateClosed,
		Label:   "Closed",
		Color:   "red",
		Details: details,
		Shift:   shift,
	}
}

func offDay(targetDate, today string) Status {
	state := StatePast
	if targetDate > today {
		state = StateFuture
	}
	details := "Check Schedule"
	if d, err := time.Parse(DateLayout, targetDate); err == nil {
		details = "Viewing " + d.Format("Monday, Jan 2")
	}
	return Status{
		State:   state,
		Label:   "Closed",
		Color:   "slate",
		Details: details,
	}
}
