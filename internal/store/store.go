// Package store persists per-user schedule state in Postgres via GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jimdaga/window-warmer/internal/models"
)

// ErrNotFound is returned when a user has no stored state.
var ErrNotFound = errors.New("user state not found")

// Store is the GORM-backed state repository. One row per user; the actor
// layer serializes access per user, so reads here are always consistent
// with the most recent write for that user.
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get fetches a user's state.
func (s *Store) Get(ctx context.Context, userID string) (*models.UserScheduleState, error) {
	var state models.UserScheduleState
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user state: %w", err)
	}
	return &state, nil
}

// Save writes the full row. The wake timer lives in the same row, so a
// state change and its timer change commit atomically.
func (s *Store) Save(ctx context.Context, state *models.UserScheduleState) error {
	if err := s.db.WithContext(ctx).Save(state).Error; err != nil {
		return fmt.Errorf("failed to save user state: %w", err)
	}
	return nil
}

// Delete hard-deletes a user's row. No soft delete: account deletion erases
// state and its pending timer in one statement.
func (s *Store) Delete(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.UserScheduleState{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDue returns users whose wake timer has come due, oldest first. The
// per-minute scan feeds these to the worker queue one task per user.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]models.UserScheduleState, error) {
	var due []models.UserScheduleState
	err := s.db.WithContext(ctx).
		Where("next_fire_at IS NOT NULL AND next_fire_at <= ?", now).
		Order("next_fire_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due users: %w", err)
	}
	return due, nil
}
