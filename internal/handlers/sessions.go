package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cutroom-backend/internal/middleware"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/schema"
	"cutroom-backend/internal/services"
)

type SessionsHandler struct {
	sessionService *services.SessionService
}

func NewSessionsHandler(sessionService *services.SessionService) *SessionsHandler {
	return &SessionsHandler{
		sessionService: sessionService,
	}
}

func (h *SessionsHandler) OpenSession(c *gin.Context) {
	if h.sessionService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	response, err := h.sessionService.OpenSession(projectID, userID)
	if err != nil {
		// A malformed stored document must fail loudly, never produce a
		// half-migrated session.
		if errors.Is(err, schema.ErrUnknownVersion) || errors.Is(err, schema.ErrMissingReferences) {
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error:   "malformed session document",
				Message: err.Error(),
			})
			return
		}
		respondStoreError(c, err, "failed to open session")
		return
	}

	c.JSON(http.StatusOK, response)
}

// isJSONObject reports whether raw is valid JSON whose top-level value is an
// object. Scalars and arrays are valid JSON but never valid session documents.
func isJSONObject(raw json.RawMessage) bool {
	if !json.Valid(raw) {
		return false
	}
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b == '{'
	}
	return false
}

func (h *SessionsHandler) SaveSession(c *gin.Context) {
	if h.sessionService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	var req models.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	// Validate before any database call.
	if !isJSONObject(req.Document) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "document must be a valid JSON object"})
		return
	}

	newVersion, conflict, err := h.sessionService.SaveSession(projectID, req)
	if err != nil {
		respondStoreError(c, err, "failed to save session")
		return
	}
	if conflict != nil {
		// Not silently resolvable: the caller must reload or force.
		c.JSON(http.StatusConflict, conflict)
		return
	}

	c.JSON(http.StatusOK, models.SaveSessionResponse{Version: newVersion})
}
