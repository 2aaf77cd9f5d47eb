package actor

import (
	"context"
	"errors"
	"time"

	"github.com/jimdaga/window-warmer/internal/escalation"
	"github.com/jimdaga/window-warmer/internal/models"
	"github.com/jimdaga/window-warmer/internal/notify"
	"github.com/jimdaga/window-warmer/internal/pinger"
	"github.com/jimdaga/window-warmer/internal/store"
)

// notifyTimeout bounds the fire-and-forget notification dispatch.
const notifyTimeout = 10 * time.Second

// HandleTimerFire runs one wake-up: decrypt the credential, sign and execute
// the ping, feed the outcome to the escalation machine, persist the decision
// and the new timer in one write, then dispatch any notification.
//
// A stale fire (user deleted, paused, or timer superseded since the task was
// enqueued) is a no-op: the dueness re-check under the user's lock is what
// makes timer clearing atomic with the state write that caused it.
func (s *Service) HandleTimerFire(ctx context.Context, userID string) error {
	defer s.lockUser(userID)()

	state, err := s.store.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now()
	if state.Paused || state.NextFireAt == nil || state.NextFireAt.After(now) {
		s.log.Info("Stale timer fire ignored", "user_id", userID)
		return nil
	}

	week, err := state.Week()
	if err != nil {
		return err
	}

	credential, err := s.keyring.DecryptAtRest(userID, state.Credential)
	if err != nil {
		// Local corruption or wrong-key ciphertext, not an
		// executor-side rejection. Mark suspended but keep the regular
		// cadence so a later credential fix self-heals.
		s.log.Error("Credential decryption failed", "user_id", userID, "error", err.Error())
		state.TokenHealth = models.TokenHealthSuspended
		state.NextFireAt = s.nextFire(state, week)
		return s.store.Save(ctx, state)
	}

	outcome := s.executePing(ctx, userID, credential, now)
	decision := escalation.Evaluate(state.ConsecutiveFailures, state.Paused, outcome, now)

	state.ConsecutiveFailures = decision.Failures
	state.TokenHealth = string(decision.Health)
	state.Paused = decision.Paused
	state.LastPingAt = &now
	state.LastPingSuccess = outcome.Success
	state.WindowEndsAt = decision.WindowEndsAt
	state.WindowExact = decision.WindowExact

	switch decision.Timer {
	case escalation.TimerArmNext:
		state.NextFireAt = s.nextFire(state, week)
	case escalation.TimerRetry:
		retryAt := now.Add(escalation.RetryInterval)
		state.NextFireAt = &retryAt
	case escalation.TimerClear:
		state.NextFireAt = nil
	}

	if err := s.store.Save(ctx, state); err != nil {
		return err
	}

	s.dispatchNotice(state, decision)
	return nil
}

// executePing performs the signed ping. Any transport, timeout, or
// executor-side error is a failed outcome for the escalation machine.
func (s *Service) executePing(ctx context.Context, userID, credential string, now time.Time) escalation.Outcome {
	transitBlob, err := s.keyring.EncryptTransit(credential)
	if err != nil {
		s.log.Error("Transit encryption failed", "user_id", userID, "error", err.Error())
		return escalation.Outcome{}
	}

	result, err := s.pinger.Execute(ctx, pinger.Request{
		Credential: transitBlob,
		Timestamp:  now.Unix(),
		Signature:  s.keyring.Sign(credential, now),
	})
	if err != nil {
		s.log.Warn("Ping execution failed", "user_id", userID, "error", err.Error())
		return escalation.Outcome{}
	}
	if !result.Success {
		s.log.Warn("Ping rejected by executor", "user_id", userID)
		return escalation.Outcome{}
	}

	return escalation.Outcome{Success: true, ExpiresAt: result.ExpiresAt}
}

// dispatchNotice sends the decision's notification in the background. The
// actor never blocks on, or fails because of, a notification.
func (s *Service) dispatchNotice(state *models.UserScheduleState, decision escalation.Decision) {
	if s.notifier == nil || decision.Notice == escalation.NoticeNone || state.OwnerEmail == "" {
		return
	}

	var msg notify.Message
	switch decision.Notice {
	case escalation.NoticeSuccess:
		ends := s.now().Add(escalation.WindowDuration)
		if decision.WindowEndsAt != nil {
			ends = *decision.WindowEndsAt
		}
		msg = notify.Success(state.OwnerEmail, ends)
	case escalation.NoticeWarning:
		msg = notify.Warning(state.OwnerEmail, decision.Failures)
	case escalation.NoticeCritical:
		msg = notify.Critical(state.OwnerEmail)
	default:
		return
	}

	userID := state.UserID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Publish(ctx, msg); err != nil {
			s.log.Error("Notification dispatch failed",
				"user_id", userID, "template", msg.Template, "error", err.Error())
		}
	}()
}
