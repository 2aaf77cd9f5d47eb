// Package actor owns per-user orchestration: every operation on a user's
// schedule state runs under that user's lock, so state reads are always
// consistent with the latest write and at most one timer fire is in flight
// per user.
package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jimdaga/window-warmer/internal/crypto"
	"github.com/jimdaga/window-warmer/internal/models"
	"github.com/jimdaga/window-warmer/internal/notify"
	"github.com/jimdaga/window-warmer/internal/pinger"
	"github.com/jimdaga/window-warmer/internal/schedule"
	"github.com/jimdaga/window-warmer/internal/store"
)

// ErrNoState is returned for operations that require the user to have
// connected a credential first.
var ErrNoState = errors.New("user has not connected a credential")

// Store is the persistence surface the actor needs.
type Store interface {
	Get(ctx context.Context, userID string) (*models.UserScheduleState, error)
	Save(ctx context.Context, state *models.UserScheduleState) error
	Delete(ctx context.Context, userID string) error
}

// Pinger executes one signed ping against the execution collaborator.
type Pinger interface {
	Execute(ctx context.Context, r pinger.Request) (*pinger.Result, error)
}

// Notifier dispatches a templated message. Failures are logged, never
// propagated: notifications are fire-and-forget.
type Notifier interface {
	Publish(ctx context.Context, msg notify.Message) error
}

// Service coordinates the schedule validator, next-occurrence calculator,
// escalation machine, and crypto module for one user at a time.
type Service struct {
	store     Store
	keyring   *crypto.Keyring
	pinger    Pinger
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time
	defaultTZ string

	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock is one user's mutex plus the number of holders and waiters, so
// idle entries can be pruned instead of accumulating one per ever-seen user.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// New creates the actor service. now is injectable for tests; pass nil for
// the wall clock.
func New(st Store, keyring *crypto.Keyring, p Pinger, n Notifier, log *slog.Logger, defaultTZ string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Service{
		store:     st,
		keyring:   keyring,
		pinger:    p,
		notifier:  n,
		log:       log,
		now:       now,
		defaultTZ: defaultTZ,
		locks:     map[string]*userLock{},
	}
}

// lockUser serializes all handlers for one user, the in-process equivalent
// of the one-in-flight-handler guarantee a durable-actor platform gives.
// The entry is dropped once the last holder releases it.
func (s *Service) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Status is the dashboard-facing view of one user's state.
type Status struct {
	Schedule       schedule.Week        `json:"schedule"`
	Timezone       string               `json:"timezone"`
	Paused         bool                 `json:"paused"`
	TokenHealth    string               `json:"token_health"`
	LastOutcome    *models.LastOutcome  `json:"last_outcome,omitempty"`
	NextOccurrence *schedule.Occurrence `json:"next_occurrence,omitempty"`
	NextPreview    string               `json:"next_preview,omitempty"`
}

// Status reports schedule, health, last outcome, and the next-trigger
// preview for one user.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	defer s.lockUser(userID)()

	state, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	week, err := state.Week()
	if err != nil {
		return nil, err
	}

	st := &Status{
		Schedule:    week,
		Timezone:    state.Timezone,
		Paused:      state.Paused,
		TokenHealth: state.TokenHealth,
		LastOutcome: state.Outcome(),
	}
	if occ, ok := schedule.Preview(week, state.Timezone, s.now()); ok {
		st.NextOccurrence = &occ
		st.NextPreview = occ.String()
	}
	return st, nil
}

// SetSchedule validates and persists a new weekly schedule wholesale, then
// recomputes the wake timer. Validation failures are returned untouched and
// nothing is partially applied.
func (s *Service) SetSchedule(ctx context.Context, userID string, week schedule.Week, tz string) error {
	if tz == "" {
		tz = s.defaultTZ
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return &schedule.ValidationError{Message: fmt.Sprintf("unknown timezone %q", tz)}
	}
	if err := schedule.Validate(week); err != nil {
		return err
	}

	defer s.lockUser(userID)()

	state, err := s.store.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoState
	}
	if err != nil {
		return err
	}

	if err := state.SetWeek(week); err != nil {
		return err
	}
	state.Timezone = tz
	state.NextFireAt = s.nextFire(state, week)

	return s.store.Save(ctx, state)
}

// SetCredential stores a freshly encrypted credential, resets the failure
// state, records the owner email, and re-arms if a schedule exists. This is
// the operation that creates a user's state on first connect.
func (s *Service) SetCredential(ctx context.Context, userID, credential, email string) error {
	blob, err := s.keyring.EncryptAtRest(userID, credential)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	defer s.lockUser(userID)()

	state, err := s.store.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		state = &models.UserScheduleState{
			UserID:      userID,
			Timezone:    s.defaultTZ,
			TokenHealth: models.TokenHealthHealthy,
		}
		err = nil
	}
	if err != nil {
		return err
	}

	state.Credential = blob
	state.ConsecutiveFailures = 0
	state.TokenHealth = models.TokenHealthHealthy
	if email != "" {
		state.OwnerEmail = email
	}

	week, err := state.Week()
	if err != nil {
		return err
	}
	state.NextFireAt = s.nextFire(state, week)

	return s.store.Save(ctx, state)
}

// TogglePause pauses or resumes a user. Pausing clears the timer without
// touching failure counts or health; resuming resets both and re-arms,
// regardless of why the user was paused.
func (s *Service) TogglePause(ctx context.Context, userID string, paused bool) error {
	defer s.lockUser(userID)()

	state, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state.Paused == paused {
		return nil
	}

	state.Paused = paused
	if paused {
		state.NextFireAt = nil
	} else {
		state.ConsecutiveFailures = 0
		state.TokenHealth = models.TokenHealthHealthy
		week, err := state.Week()
		if err != nil {
			return err
		}
		state.NextFireAt = s.nextFire(state, week)
	}

	return s.store.Save(ctx, state)
}

// Delete permanently erases a user's state. The pending timer lives in the
// same row, so it is cancelled by the same write.
func (s *Service) Delete(ctx context.Context, userID string) error {
	defer s.lockUser(userID)()
	return s.store.Delete(ctx, userID)
}

// nextFire computes the timer value for the current state: nil when paused
// or when no active day exists.
func (s *Service) nextFire(state *models.UserScheduleState, week schedule.Week) *time.Time {
	if state.Paused {
		return nil
	}
	occ, ok := schedule.Next(week, state.Timezone, s.now())
	if !ok {
		return nil
	}
	return &occ.At
}
