package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/window-warmer/internal/actor"
	"github.com/jimdaga/window-warmer/internal/models"
	"github.com/jimdaga/window-warmer/internal/schedule"
	"github.com/jimdaga/window-warmer/internal/store"
)

// StatusHandler returns the user's schedule, health, last outcome, and
// next-trigger preview.
func StatusHandler(svc *actor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		status, err := svc.Status(c.Request.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no schedule state; connect a credential first"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

// SetScheduleHandler validates and stores a new weekly schedule.
func SetScheduleHandler(svc *actor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var raw map[string]interface{}
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON body"})
			return
		}
		if err := validateSchedulePayload(raw); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		// Re-decode through the typed structs now that the shape is known.
		var body struct {
			Timezone string        `json:"timezone"`
			Schedule schedule.Week `json:"schedule"`
		}
		data, _ := json.Marshal(raw)
		if err := json.Unmarshal(data, &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed schedule"})
			return
		}

		err := svc.SetSchedule(c.Request.Context(), userID, body.Schedule, body.Timezone)
		var verr *schedule.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error()})
		case errors.Is(err, actor.ErrNoState):
			c.JSON(http.StatusConflict, gin.H{"error": "connect a credential before scheduling"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save schedule"})
		default:
			c.Status(http.StatusNoContent)
		}
	}
}

// SetCredentialHandler stores a new credential for the authenticated user,
// resetting failure state. The owner email recorded with the state comes
// from the identity collaborator at this moment, once.
func SetCredentialHandler(svc *actor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		email := c.GetString("user_email")

		var body struct {
			Credential string `json:"credential"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Credential == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credential is required"})
			return
		}

		if err := svc.SetCredential(c.Request.Context(), userID, body.Credential, email); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// TogglePauseHandler pauses or resumes the user's schedule. Resuming a
// suspended user succeeds, but the response carries a warning the dashboard
// shows before the user confirms: the credential is likely invalid.
func TogglePauseHandler(svc *actor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var body struct {
			Paused *bool `json:"paused"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Paused == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paused flag is required"})
			return
		}

		var warning string
		if !*body.Paused {
			if status, err := svc.Status(c.Request.Context(), userID); err == nil &&
				status.TokenHealth == models.TokenHealthSuspended {
				warning = "this schedule was suspended after repeated failures; the credential is likely invalid"
			}
		}

		err := svc.TogglePause(c.Request.Context(), userID, *body.Paused)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no schedule state"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update pause state"})
			return
		}

		if warning != "" {
			c.JSON(http.StatusOK, gin.H{"warning": warning})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeleteAccountHandler permanently erases the user's state. No soft delete,
// no retained backup.
func DeleteAccountHandler(svc *actor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		err := svc.Delete(c.Request.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no schedule state"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
