package schedule

import "fmt"

// ValidationError reports the first rule a proposed schedule violates. The
// message is human-readable and safe to surface to the caller.
type ValidationError struct {
	Day     string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Day == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Day, e.Message)
}

// Validate checks a proposed weekly schedule. Rules run in order and the
// first violation wins; a nil return means the schedule is acceptable as-is.
func Validate(w Week) error {
	// Rule 1: only the seven recognized weekday keys.
	for day := range w {
		if _, ok := dayIndex[day]; !ok {
			return &ValidationError{Message: fmt.Sprintf("unknown day %q", day)}
		}
	}

	// Rule 2, per active day in canonical order: roll count, an enabled
	// first roll, and well-formed times.
	for _, day := range dayOrder {
		rolls := w[day]
		if len(rolls) == 0 {
			continue
		}
		if len(rolls) > MaxRollsPerDay {
			return &ValidationError{Day: day, Message: fmt.Sprintf("at most %d rolls allowed, got %d", MaxRollsPerDay, len(rolls))}
		}
		if !rolls[0].Enabled {
			return &ValidationError{Day: day, Message: "first roll must be enabled"}
		}
		for i, roll := range rolls {
			if _, err := parseClock(roll.Time); err != nil {
				return &ValidationError{Day: day, Message: fmt.Sprintf("roll %d: %v", i, err)}
			}
		}
	}

	// Rule 3: every time is known well-formed now, so check the cadence.
	for _, day := range dayOrder {
		rolls := w[day]
		if len(rolls) == 0 {
			continue
		}
		base, _ := parseClock(rolls[0].Time)
		for i, roll := range rolls[1:] {
			minutes, _ := parseClock(roll.Time)
			// Rolls follow a fixed 5-hour cadence from roll 0,
			// wrapping at midnight.
			expected := (base + (i+1)*RollSpacing) % minutesPerDay
			if minutes != expected {
				return &ValidationError{Day: day, Message: fmt.Sprintf(
					"roll %d must be %s (5 hours after the previous roll), got %s",
					i+1, formatClock(expected), roll.Time)}
			}
		}
	}

	return validateOverlap(w)
}

// validateOverlap enforces that each active day's coverage (its last enabled
// roll plus the 5-hour window it keeps alive) ends before the next active
// day's first roll. Active days are treated as a cycle; consecutive active
// days compare within a shared 24-hour frame, with each further calendar day
// of separation granting another full day of room.
func validateOverlap(w Week) error {
	active := w.ActiveDays()
	if len(active) < 2 {
		return nil
	}

	for i, dayA := range active {
		dayB := active[(i+1)%len(active)]
		daysApart := (dayIndex[dayB] - dayIndex[dayA] + 7) % 7

		rollsA := w[dayA]
		base, _ := parseClock(rollsA[0].Time)
		last := base
		for _, roll := range rollsA[1:] {
			if !roll.Enabled {
				continue
			}
			m, _ := parseClock(roll.Time)
			// A roll whose clock time precedes roll 0 crossed
			// midnight; unwrap it onto the following day.
			if m < base {
				m += minutesPerDay
			}
			last = m
		}
		endOfCoverage := last + RollSpacing

		// A last roll that crossed midnight consumed one of the calendar
		// days separating A from B; credit it, or B could never satisfy
		// the check.
		gapDays := daysApart - 1
		if last >= minutesPerDay {
			gapDays++
		}

		first, _ := parseClock(w[dayB][0].Time)
		firstAbs := first + gapDays*minutesPerDay

		if endOfCoverage > firstAbs {
			earliest := endOfCoverage - gapDays*minutesPerDay
			return &ValidationError{Day: dayB, Message: fmt.Sprintf(
				"first roll overlaps the window still open from %s; move it to %s or later",
				dayA, formatClock(earliest))}
		}
	}

	return nil
}
