package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cutroom-backend/internal/middleware"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/services"
)

type SnapshotsHandler struct {
	sequenceService *services.SequenceService
}

func NewSnapshotsHandler(sequenceService *services.SequenceService) *SnapshotsHandler {
	return &SnapshotsHandler{
		sequenceService: sequenceService,
	}
}

func snapshotResponse(snapshot *models.Snapshot) models.SnapshotResponse {
	return models.SnapshotResponse{
		ID:         snapshot.ID,
		Name:       snapshot.Name,
		CreatedAt:  snapshot.CreatedAt,
		DurationMS: snapshot.DurationMS,
	}
}

func (h *SnapshotsHandler) CreateSnapshot(c *gin.Context) {
	if h.sequenceService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	var req models.CreateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	// Rejected before any network call.
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "snapshot name must not be empty"})
		return
	}

	snapshot, err := h.sequenceService.CreateSnapshot(sequenceID, strings.TrimSpace(req.Name))
	if err != nil {
		respondStoreError(c, err, "failed to create snapshot")
		return
	}

	c.JSON(http.StatusOK, snapshotResponse(snapshot))
}

func (h *SnapshotsHandler) ListSnapshots(c *gin.Context) {
	if h.sequenceService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	snapshots, err := h.sequenceService.ListSnapshots(sequenceID)
	if err != nil {
		respondStoreError(c, err, "failed to list snapshots")
		return
	}

	responses := make([]models.SnapshotResponse, len(snapshots))
	for i := range snapshots {
		responses[i] = snapshotResponse(&snapshots[i])
	}

	c.JSON(http.StatusOK, models.SnapshotListResponse{Snapshots: responses})
}

func (h *SnapshotsHandler) RestoreSnapshot(c *gin.Context) {
	if h.sequenceService == nil {
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

	snapshotID := c.Param("snapshot_id")
	if snapshotID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid snapshot id"})
		return
	}

	if err := h.sequenceService.RestoreSnapshot(sequenceID, snapshotID, userIDStr.(string)); err != nil {
		respondStoreError(c, err, "failed to restore snapshot")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "snapshot restored"})
}

func (h *SnapshotsHandler) DeleteSnapshot(c *gin.Context) {
	if h.sequenceService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	sequenceID, err := uuid.Parse(c.Param("sequence_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid sequence id"})
		return
	}

	snapshotID := c.Param("snapshot_id")
	if snapshotID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid snapshot id"})
		return
	}

	if err := h.sequenceService.DeleteSnapshot(sequenceID, snapshotID); err != nil {
		respondStoreError(c, err, "failed to delete snapshot")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "snapshot deleted successfully"})
}
