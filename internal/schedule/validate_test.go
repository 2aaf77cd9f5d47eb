package schedule

import (
	"strings"
	"testing"
)

func rolls(times ...string) []Roll {
	out := make([]Roll, len(times))
	for i, t := range times {
		out[i] = Roll{Time: t, Enabled: true}
	}
	return out
}

func TestValidateCadence(t *testing.T) {
	tests := []struct {
		name    string
		week    Week
		wantErr string
	}{
		{
			name: "full cadence passes",
			week: Week{"monday": rolls("04:00", "09:00", "14:00", "19:00")},
		},
		{
			name: "cadence wraps past midnight",
			week: Week{"monday": rolls("22:00", "03:00")},
		},
		{
			name:    "off-cadence roll rejected with expected value",
			week:    Week{"monday": rolls("04:00", "09:00", "14:30", "19:00")},
			wantErr: "14:00",
		},
		{
			name:    "unknown day rejected",
			week:    Week{"funday": rolls("04:00")},
			wantErr: "unknown day",
		},
		{
			name:    "too many rolls rejected",
			week:    Week{"monday": rolls("00:00", "05:00", "10:00", "15:00", "20:00", "01:00")},
			wantErr: "at most 5",
		},
		{
			name:    "disabled first roll rejected",
			week:    Week{"monday": {{Time: "04:00", Enabled: false}}},
			wantErr: "first roll must be enabled",
		},
		{
			name:    "malformed time rejected",
			week:    Week{"monday": rolls("4:00")},
			wantErr: "HH:MM",
		},
		{
			name:    "out-of-range hour rejected",
			week:    Week{"monday": rolls("25:00")},
			wantErr: "invalid hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.week)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid schedule, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateOverlap(t *testing.T) {
	// Monday's single roll keeps a window open until 09:00; Tuesday must
	// not start before that clock time.
	week := Week{
		"monday":  rolls("04:00"),
		"tuesday": rolls("06:00"),
	}
	err := Validate(week)
	if err == nil {
		t.Fatal("expected overlap rejection")
	}
	if !strings.Contains(err.Error(), "09:00") {
		t.Errorf("expected suggestion 09:00 in %q", err.Error())
	}

	// Moving Tuesday's first roll to exactly 09:00 is acceptable.
	week["tuesday"] = rolls("09:00")
	if err := Validate(week); err != nil {
		t.Errorf("expected 09:00 start to pass, got %v", err)
	}

	week["tuesday"] = rolls("11:30")
	if err := Validate(week); err != nil {
		t.Errorf("expected 11:30 start to pass, got %v", err)
	}
}

func TestValidateOverlapUnwrapped(t *testing.T) {
	// Monday's last roll crosses midnight (22:00 -> 03:00 Tuesday), so its
	// coverage runs to 08:00 Tuesday and Tuesday's 06:00 start collides.
	week := Week{
		"monday":  rolls("22:00", "03:00"),
		"tuesday": rolls("06:00"),
	}
	err := Validate(week)
	if err == nil {
		t.Fatal("expected overlap rejection")
	}
	if !strings.Contains(err.Error(), "08:00") {
		t.Errorf("expected suggestion 08:00 in %q", err.Error())
	}

	// The suggested time must itself be admissible.
	week["tuesday"] = rolls("08:00")
	if err := Validate(week); err != nil {
		t.Errorf("suggested 08:00 start must validate, got %v", err)
	}

	week["tuesday"] = rolls("07:59")
	if err := Validate(week); err == nil {
		t.Error("expected 07:59 start to stay rejected")
	}
}

func TestValidateTimeSyntaxBeforeCadence(t *testing.T) {
	// Roll 1 is off the cadence, but roll 2's malformed time must be
	// reported first: all times are checked well-formed before any cadence
	// comparison runs.
	week := Week{"monday": rolls("04:00", "10:00", "junk")}
	err := Validate(week)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "HH:MM") {
		t.Errorf("expected the malformed time reported first, got %q", err.Error())
	}
}

func TestValidateOverlapCyclic(t *testing.T) {
	// The last active day wraps around to the first: Friday's coverage is
	// checked against Monday of the following week and passes easily.
	week := Week{
		"monday": rolls("04:00"),
		"friday": rolls("23:00"),
	}
	if err := Validate(week); err != nil {
		t.Errorf("expected cyclic pair to pass, got %v", err)
	}
}

func TestValidateSingleDaySkipsOverlap(t *testing.T) {
	week := Week{"wednesday": rolls("23:00")}
	if err := Validate(week); err != nil {
		t.Errorf("single active day needs no overlap check, got %v", err)
	}
}

func TestValidateIdempotent(t *testing.T) {
	valid := Week{"monday": rolls("04:00", "09:00")}
	invalid := Week{"monday": rolls("04:00", "10:00")}

	for i := 0; i < 2; i++ {
		if err := Validate(valid); err != nil {
			t.Errorf("run %d: valid schedule rejected: %v", i, err)
		}
		if err := Validate(invalid); err == nil {
			t.Errorf("run %d: invalid schedule accepted", i)
		}
	}
}

func TestValidateEmptyWeek(t *testing.T) {
	if err := Validate(Week{}); err != nil {
		t.Errorf("empty week is a valid (fully inactive) schedule, got %v", err)
	}
}
