package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/window-warmer/internal/schedule"
)

// Token health constants, mirrored by escalation.Health.
const (
	TokenHealthHealthy   = "healthy"
	TokenHealthWarning   = "warning"
	TokenHealthSuspended = "suspended"
)

// UserScheduleState is the single durable row per user: schedule, encrypted
// credential, failure counters, and the wake timer. NextFireAt is the one
// pending fire instant; NULL means no timer (paused, suspended, or no active
// day). Clearing the timer and the state change that caused it are always
// the same row update.
type UserScheduleState struct {
	gorm.Model
	UserID   string         `gorm:"uniqueIndex;not null"`
	Schedule datatypes.JSON `gorm:"type:jsonb"`
	Timezone string         `gorm:"not null;default:'UTC'"`

	// Credential is the at-rest encrypted blob (nonce:ciphertext, both
	// base64). Empty until the user first connects.
	Credential string `gorm:"type:text"`

	TokenHealth         string `gorm:"not null;default:'healthy'"`
	ConsecutiveFailures int    `gorm:"not null;default:0"`
	Paused              bool   `gorm:"not null;default:false"`
	OwnerEmail          string

	LastPingAt      *time.Time
	LastPingSuccess bool
	WindowEndsAt    *time.Time
	WindowExact     bool

	NextFireAt *time.Time `gorm:"index"`
}

// Week unmarshals the stored schedule. An empty column is an empty week.
func (s *UserScheduleState) Week() (schedule.Week, error) {
	if len(s.Schedule) == 0 {
		return schedule.Week{}, nil
	}
	var w schedule.Week
	if err := json.Unmarshal(s.Schedule, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	return w, nil
}

// SetWeek replaces the stored schedule wholesale.
func (s *UserScheduleState) SetWeek(w schedule.Week) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	s.Schedule = datatypes.JSON(data)
	return nil
}

// LastOutcome is the API-facing record of the most recent ping attempt.
type LastOutcome struct {
	Timestamp    time.Time  `json:"timestamp"`
	Success      bool       `json:"success"`
	WindowEndsAt *time.Time `json:"window_ends_at,omitempty"`
	Exact        bool       `json:"exact"`
}

// Outcome returns the last-outcome record, or nil if no ping has run yet.
func (s *UserScheduleState) Outcome() *LastOutcome {
	if s.LastPingAt == nil {
		return nil
	}
	return &LastOutcome{
		Timestamp:    *s.LastPingAt,
		Success:      s.LastPingSuccess,
		WindowEndsAt: s.WindowEndsAt,
		Exact:        s.WindowExact,
	}
}
