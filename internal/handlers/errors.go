package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cutroom-backend/internal/models"
	"cutroom-backend/internal/supabase"
)

// respondStoreError maps the store's sentinel errors onto status codes.
// Permission refusals (403) carry their specific reason so the client can
// tell "locked by another user" and "default sequence" apart from generic
// failure and prompt accordingly.
func respondStoreError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, supabase.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "not found", Message: err.Error(),
		})
	case errors.Is(err, supabase.ErrNameTaken):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "name already exists", Message: err.Error(),
		})
	case errors.Is(err, supabase.ErrDefaultSequence):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error: "default sequence", Message: err.Error(),
		})
	case errors.Is(err, supabase.ErrLockRequired):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error: "lock required", Message: err.Error(),
		})
	case errors.Is(err, supabase.ErrLockHeld):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "lock held", Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: action, Message: err.Error(),
		})
	}
}
