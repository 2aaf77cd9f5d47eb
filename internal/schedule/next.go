package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Occurrence is one upcoming trigger, resolved to an absolute instant.
type Occurrence struct {
	Day   string    `json:"day"`
	Clock string    `json:"clock"` // local "HH:MM"
	At    time.Time `json:"at"`
}

// String renders the occurrence for the dashboard preview.
func (o Occurrence) String() string {
	return fmt.Sprintf("%s%s %s (%s)",
		strings.ToUpper(o.Day[:1]), o.Day[1:], o.Clock, o.At.UTC().Format(time.RFC3339))
}

// Next returns the earliest trigger instant strictly after now, scanning a
// full week of calendar dates in the user's zone. The second return is false
// when no day is active or the timezone is unknown.
func Next(w Week, tz string, now time.Time) (Occurrence, bool) {
	return scan(w, tz, now, true)
}

// Preview is Next without the strictly-after filter: it reports the current
// scan's first trigger even if its instant has already passed today. Used
// only to render the "next trigger" line, never to arm a timer.
func Preview(w Week, tz string, now time.Time) (Occurrence, bool) {
	return scan(w, tz, now, false)
}

func scan(w Week, tz string, now time.Time, strictlyAfter bool) (Occurrence, bool) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Occurrence{}, false
	}

	localNow := now.In(loc)
	year, month, day := localNow.Date()

	var best Occurrence
	found := false
	// Offset 7 revisits today's weekday: when today's only trigger has
	// already passed, the next occurrence is the same day next week.
	for offset := 0; offset <= 7; offset++ {
		// Normalize (day + offset) through time.Date to get the
		// calendar date without DST arithmetic on instants.
		date := time.Date(year, month, day+offset, 0, 0, 0, 0, time.UTC)
		name := weekdayName(date.Weekday())
		rolls := w[name]
		if len(rolls) == 0 {
			continue
		}

		base, err := parseClock(rolls[0].Time)
		if err != nil {
			continue
		}
		for _, roll := range rolls {
			if !roll.Enabled {
				continue
			}
			minutes, err := parseClock(roll.Time)
			if err != nil {
				continue
			}
			dy, dm, dd := date.Date()
			// A roll whose clock time precedes roll 0 fires on the
			// following calendar date.
			if minutes < base {
				next := time.Date(dy, dm, dd+1, 0, 0, 0, 0, time.UTC)
				dy, dm, dd = next.Date()
			}
			at := localInstant(loc, dy, dm, dd, minutes/60, minutes%60)
			if strictlyAfter && !at.After(now) {
				continue
			}
			if !found || at.Before(best.At) {
				best = Occurrence{Day: name, Clock: formatClock(minutes), At: at}
				found = true
			}
		}
	}

	return best, found
}

// localInstant converts a local wall-clock time on a calendar date in loc to
// an absolute instant using only instant-in-zone projection:
//
//  1. guess by treating the local datetime as UTC,
//  2. re-project the guess into loc and shift by the local-time delta,
//  3. verify the shifted instant projects back to the requested clock time,
//  4. on a DST gap or fold mismatch, retry at ±1 hour from the shifted
//     guess; if neither matches, keep the shifted guess.
func localInstant(loc *time.Location, year int, month time.Month, day, hour, minute int) time.Time {
	guess := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)

	proj := guess.In(loc)
	naiveProj := time.Date(proj.Year(), proj.Month(), proj.Day(), proj.Hour(), proj.Minute(), 0, 0, time.UTC)
	shifted := guess.Add(guess.Sub(naiveProj))

	desired := hour*60 + minute
	if clockMinutes(shifted.In(loc)) == desired {
		return shifted
	}
	for _, adjust := range []time.Duration{-time.Hour, time.Hour} {
		if candidate := shifted.Add(adjust); clockMinutes(candidate.In(loc)) == desired {
			return candidate
		}
	}
	// The requested local time does not exist (spring-forward gap); the
	// shifted guess is still a real instant within an hour of it.
	return shifted
}

// clockMinutes reports t's local minute-of-day via formatting, normalizing
// the "24:xx" midnight artifact some zone formatters emit.
func clockMinutes(t time.Time) int {
	minutes, err := parseClock(t.Format("15:04"))
	if err != nil {
		return -1
	}
	return minutes
}
