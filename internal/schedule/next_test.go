package schedule

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return ts
}

func TestNextSingleDay(t *testing.T) {
	week := Week{"tuesday": rolls("06:00")}
	now := mustParse(t, "2026-06-01T12:00:00Z") // Monday

	occ, ok := Next(week, "America/New_York", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	want := mustParse(t, "2026-06-02T10:00:00Z") // 06:00 EDT
	if !occ.At.Equal(want) {
		t.Errorf("got %v, want %v", occ.At, want)
	}
	if occ.Day != "tuesday" || occ.Clock != "06:00" {
		t.Errorf("got %s %s, want tuesday 06:00", occ.Day, occ.Clock)
	}
}

func TestNextRollsOverToFollowingWeek(t *testing.T) {
	week := Week{"monday": rolls("06:00")}
	// Monday afternoon: today's trigger already passed.
	now := mustParse(t, "2026-06-01T16:00:00Z")

	occ, ok := Next(week, "America/New_York", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	want := mustParse(t, "2026-06-08T10:00:00Z")
	if !occ.At.Equal(want) {
		t.Errorf("got %v, want %v", occ.At, want)
	}
}

func TestNextSkipsDisabledRolls(t *testing.T) {
	week := Week{"monday": {
		{Time: "04:00", Enabled: true},
		{Time: "09:00", Enabled: false},
	}}
	now := mustParse(t, "2026-06-01T05:00:00Z")

	occ, ok := Next(week, "UTC", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	// The disabled 09:00 roll must not fire; the next instant is next
	// Monday's first roll.
	want := mustParse(t, "2026-06-08T04:00:00Z")
	if !occ.At.Equal(want) {
		t.Errorf("got %v, want %v", occ.At, want)
	}
}

func TestNextWrappedRollFiresNextDay(t *testing.T) {
	week := Week{"monday": rolls("22:00", "03:00")}
	now := mustParse(t, "2026-06-01T23:30:00Z")

	occ, ok := Next(week, "UTC", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	want := mustParse(t, "2026-06-02T03:00:00Z")
	if !occ.At.Equal(want) {
		t.Errorf("got %v, want %v", occ.At, want)
	}
}

func TestNextSpringForwardGap(t *testing.T) {
	// 2026-03-08 02:30 does not exist in America/New_York; the calculator
	// must still return a real instant within an hour of the request.
	week := Week{"sunday": rolls("02:30")}
	now := mustParse(t, "2026-03-08T05:00:00Z") // midnight EST

	occ, ok := Next(week, "America/New_York", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	if !occ.At.After(now) {
		t.Fatalf("occurrence %v not after now %v", occ.At, now)
	}

	loc, _ := time.LoadLocation("America/New_York")
	local := occ.At.In(loc)
	gotMinutes := local.Hour()*60 + local.Minute()
	diff := gotMinutes - 150
	if diff < -60 || diff > 60 {
		t.Errorf("local projection %s is more than an hour from 02:30", local.Format("15:04"))
	}
	if local.Weekday() != time.Sunday {
		t.Errorf("expected a Sunday instant, got %s", local.Weekday())
	}
}

func TestNextFallBackFold(t *testing.T) {
	// 2026-11-01 01:30 occurs twice in America/New_York; either instant
	// is acceptable as long as the local projection matches exactly.
	week := Week{"sunday": rolls("01:30")}
	now := mustParse(t, "2026-11-01T04:00:00Z") // midnight EDT

	occ, ok := Next(week, "America/New_York", now)
	if !ok {
		t.Fatal("expected an occurrence")
	}

	loc, _ := time.LoadLocation("America/New_York")
	if got := occ.At.In(loc).Format("15:04"); got != "01:30" {
		t.Errorf("local projection %s, want 01:30", got)
	}
}

func TestNextNoActiveDay(t *testing.T) {
	if _, ok := Next(Week{}, "UTC", time.Now()); ok {
		t.Error("expected no occurrence for an empty week")
	}
}

func TestNextUnknownTimezone(t *testing.T) {
	week := Week{"monday": rolls("06:00")}
	if _, ok := Next(week, "Mars/Olympus_Mons", time.Now()); ok {
		t.Error("expected no occurrence for an unknown zone")
	}
}

func TestPreviewIncludesPassedInstant(t *testing.T) {
	week := Week{"monday": rolls("06:00")}
	now := mustParse(t, "2026-06-01T16:00:00Z") // after today's trigger

	occ, ok := Preview(week, "America/New_York", now)
	if !ok {
		t.Fatal("expected a preview occurrence")
	}
	// Preview skips the strictly-after filter: it reports today's
	// already-passed instant rather than next week's.
	want := mustParse(t, "2026-06-01T10:00:00Z")
	if !occ.At.Equal(want) {
		t.Errorf("got %v, want %v", occ.At, want)
	}
	if occ.String() == "" {
		t.Error("expected a rendered preview string")
	}
}
