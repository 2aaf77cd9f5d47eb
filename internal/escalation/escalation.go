// Package escalation decides how the service reacts to ping outcomes:
// retry on early failures, warn at three in a row, suspend at five.
package escalation

import "time"

// Health classifies a user's credential based on consecutive failures.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthWarning   Health = "warning"
	HealthSuspended Health = "suspended"
)

const (
	// WarningThreshold is the consecutive-failure count at which the user
	// is warned, once, on the transition.
	WarningThreshold = 3
	// SuspendThreshold is the count at which automatic retries stop until
	// the user manually resumes.
	SuspendThreshold = 5

	// RetryInterval is the short re-arm delay after a failed ping,
	// independent of the regular schedule.
	RetryInterval = 2 * time.Minute

	// WindowDuration is the assumed lifetime of the usage window a
	// successful ping opens, used when the execution collaborator does
	// not report an exact expiry.
	WindowDuration = 5 * time.Hour
)

// Outcome is the result of one ping attempt.
type Outcome struct {
	Success   bool
	ExpiresAt *time.Time // exact window expiry, when the collaborator reports one
}

// TimerAction tells the actor what to do with the user's wake timer.
type TimerAction int

const (
	TimerArmNext TimerAction = iota // recompute from the schedule
	TimerRetry                      // re-arm after RetryInterval
	TimerClear                      // no further automatic attempts
)

// Notice names the notification to dispatch, if any.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeSuccess
	NoticeWarning
	NoticeCritical
)

// Decision is the full consequence of an outcome: the new counters and
// health, what happens to the timer, which notice to send, and the window
// bookkeeping for the outcome record.
type Decision struct {
	Failures int
	Health   Health
	Paused   bool
	Timer    TimerAction
	Notice   Notice

	WindowEndsAt *time.Time
	WindowExact  bool
}

// HealthFor is the pure mapping from a consecutive-failure count to health.
func HealthFor(failures int) Health {
	switch {
	case failures >= SuspendThreshold:
		return HealthSuspended
	case failures >= WarningThreshold:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// Evaluate applies one ping outcome to the current consecutive-failure count
// and paused flag. It is a pure function; the actor persists the decision.
func Evaluate(failures int, paused bool, out Outcome, now time.Time) Decision {
	if out.Success {
		ends := out.ExpiresAt
		exact := ends != nil
		if ends == nil {
			estimated := now.Add(WindowDuration)
			ends = &estimated
		}
		return Decision{
			Failures:     0,
			Health:       HealthHealthy,
			Paused:       paused,
			Timer:        TimerArmNext,
			Notice:       NoticeSuccess,
			WindowEndsAt: ends,
			WindowExact:  exact,
		}
	}

	failures++
	d := Decision{
		Failures: failures,
		Health:   HealthFor(failures),
		Paused:   paused,
		Timer:    TimerRetry,
	}
	switch {
	case failures >= SuspendThreshold:
		d.Paused = true
		d.Timer = TimerClear
		d.Notice = NoticeCritical
	case failures == WarningThreshold:
		// Exactly on the transition, not on every later failure.
		d.Notice = NoticeWarning
	}
	return d
}
