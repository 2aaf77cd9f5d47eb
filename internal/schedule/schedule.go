// Package schedule implements the weekly ping schedule: the Roll/Week types,
// the schedule validator, and the DST-correct next-occurrence calculator.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RollSpacing is the gap between consecutive rolls of a day. Each roll is
// assumed to keep the downstream usage window alive for this long.
const RollSpacing = 300 // minutes

// MaxRollsPerDay bounds how many rolls a single day may carry.
const MaxRollsPerDay = 5

const minutesPerDay = 24 * 60

// Roll is one scheduled local-time trigger within a day.
type Roll struct {
	Time    string `json:"time"` // "HH:MM" local wall-clock
	Enabled bool   `json:"enabled"`
}

// Week maps lowercase weekday names to their rolls. An absent day is
// inactive. A day's rolls follow the fixed 5-hour cadence from roll 0.
type Week map[string][]Roll

// dayOrder fixes the canonical weekday sequence used for validation and the
// next-occurrence scan.
var dayOrder = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var dayIndex = func() map[string]int {
	m := make(map[string]int, len(dayOrder))
	for i, d := range dayOrder {
		m[d] = i
	}
	return m
}()

// weekdayName maps time.Weekday to our lowercase day keys.
func weekdayName(wd time.Weekday) string {
	// time.Weekday starts at Sunday; our cycle starts at Monday.
	return dayOrder[(int(wd)+6)%7]
}

// ActiveDays returns the active weekday names in canonical order.
func (w Week) ActiveDays() []string {
	var days []string
	for _, d := range dayOrder {
		if len(w[d]) > 0 {
			days = append(days, d)
		}
	}
	return days
}

// parseClock parses "HH:MM" into minutes since midnight. A leading hour of
// "24" (an artifact of some zone-formatting libraries at local midnight) is
// normalized to "00".
func parseClock(s string) (int, error) {
	hh, mm, found := strings.Cut(s, ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if hh == "24" {
		hh = "00"
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// formatClock renders minutes-since-midnight as "HH:MM", wrapping at 24h.
func formatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
