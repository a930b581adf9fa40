package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cutroom-backend/internal/middleware"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/services"
	"cutroom-backend/internal/supabase"
)

type SequencesHandler struct {
	dbClient        *supabase.DatabaseClient
	sequenceService *services.SequenceService
	realtimeClient  *supabase.RealtimeClient
}

func NewSequencesHandler(dbClient *supabase.DatabaseClient, sequenceService *services.SequenceService, realtimeClient *supabase.RealtimeClient) *SequencesHandler {
	return &SequencesHandler{
		dbClient:        dbClient,
		sequenceService: sequenceService,
		realtimeClient:  realtimeClient,
	}
}

func sequenceResponse(seq *models.Sequence) models.SequenceResponse {
	response := models.SequenceResponse{
		ID:         seq.ID.String(),
		Name:       seq.Name,
		DurationMS: seq.DurationMS,
		IsDefault:  seq.IsDefault,
	}
	if seq.ThumbnailURL.Valid {
		response.ThumbnailURL = seq.ThumbnailURL.String
	}
	if seq.LockedBy.Valid {
		response.LockedBy = &seq.LockedBy.String
	}
	if seq.LockHolderName.Valid {
		response.LockHolderName = &seq.LockHolderName.String
	}
	return response
}

func (h *SequencesHandler) ListSequences(c *gin.Context) {
	if h.dbClient == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	sequences, err := h.dbClient.ListSequences(projectID)
	if err != nil {
		respondStoreError(c, err, "failed to list sequences")
		return
	}

	responses := make([]models.SequenceResponse, len(sequences))
	for i := range sequences {
		responses[i] = sequenceResponse(&sequences[i])
	}

	c.JSON(http.StatusOK, models.SequenceListResponse{Sequences: responses})
}

func (h *SequencesHandler) CreateSequence(c *gin.Context) {
	if h.dbClient == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	var req models.CreateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	// Rejected before any database call.
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "sequence name must not be empty"})
		return
	}

	sequence, err := h.dbClient.CreateSequence(projectID, strings.TrimSpace(req.Name), false)
	if err != nil {
		respondStoreError(c, err, "failed to create sequence")
		return
	}

	c.JSON(http.StatusOK, sequenceResponse(sequence))
}

func (h *SequencesHandler) RenameSequence(c *gin.Context) {
	if h.dbClient == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	var req models.RenameSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "sequence name must not be empty"})
		return
	}

	sequence, err := h.dbClient.RenameSequence(sequenceID, strings.TrimSpace(req.Name))
	if err != nil {
		respondStoreError(c, err, "failed to rename sequence")
		return
	}

	c.JSON(http.StatusOK, sequenceResponse(sequence))
}

func (h *SequencesHandler) CopySequence(c *gin.Context) {
	if h.sequenceService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	var req models.CreateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "sequence name must not be empty"})
		return
	}

	sequence, err := h.sequenceService.CopySequence(sequenceID, strings.TrimSpace(req.Name))
	if err != nil {
		respondStoreError(c, err, "failed to copy sequence")
		return
	}

	c.JSON(http.StatusOK, sequenceResponse(sequence))
}

func (h *SequencesHandler) DeleteSequence(c *gin.Context) {
	if h.sequenceService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	if err := h.sequenceService.DeleteSequence(sequenceID); err != nil {
		respondStoreError(c, err, "failed to delete sequence")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sequence deleted successfully"})
}

func (h *SequencesHandler) AcquireLock(c *gin.Context) {
	if h.dbClient == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}
	displayNameVal, _ := c.Get(middleware.DisplayNameKey)
	displayName, _ := displayNameVal.(string)

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	sequence, err := h.dbClient.AcquireSequenceLock(sequenceID, userIDStr.(string), displayName)
	if err != nil {
		respondStoreError(c, err, "failed to acquire lock")
		return
	}

	h.realtimeClient.PublishProjectEvent(sequence.ProjectID, "sequence_locked",
		supabase.SequenceLockedPayload(sequence.ID, userIDStr.(string), displayName))
	c.JSON(http.StatusOK, sequenceResponse(sequence))
}

func (h *SequencesHandler) ReleaseLock(c *gin.Context) {
	if h.dbClient == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	if err := h.dbClient.ReleaseSequenceLock(sequenceID, userIDStr.(string)); err != nil {
		respondStoreError(c, err, "failed to release lock")
		return
	}

	sequence, err := h.dbClient.GetSequence(sequenceID)
	if err == nil {
		h.realtimeClient.PublishProjectEvent(sequence.ProjectID, "sequence_unlocked",
			supabase.SequenceUnlockedPayload(sequenceID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "lock released"})
}
