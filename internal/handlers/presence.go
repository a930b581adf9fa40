package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cutroom-backend/internal/middleware"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/presence"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type PresenceHandler struct {
	registry *presence.Registry
}

func NewPresenceHandler(registry *presence.Registry) *PresenceHandler {
	return &PresenceHandler{
		registry: registry,
	}
}

func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}
	displayNameVal, _ := c.Get(middleware.DisplayNameKey)
	displayName, _ := displayNameVal.(string)

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.HeartbeatRequest{}
	}

	entry := models.PresenceEntry{
		UserID:      userIDStr.(string),
		DisplayName: displayName,
		PhotoURL:    req.PhotoURL,
	}
	if req.DisplayName != "" {
		entry.DisplayName = req.DisplayName
	}

	// Presence is a cosmetic subsystem: a failed heartbeat is logged and the
	// client told OK; the next beat will catch up.
	if err := h.registry.Heartbeat(c.Request.Context(), projectID, entry); err != nil {
		log.Printf("presence heartbeat failed for %s: %v", entry.UserID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *PresenceHandler) Leave(c *gin.Context) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	h.registry.Leave(c.Request.Context(), projectID, userIDStr.(string))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *PresenceHandler) ListActive(c *gin.Context) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	entries, err := h.registry.Entries(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to read presence",
			Message: err.Error(),
		})
		return
	}

	active := presence.ActiveEntries(entries, userIDStr.(string), time.Now().UTC())
	c.JSON(http.StatusOK, models.PresenceListResponse{Users: active})
}

// Subscribe streams the active set over a websocket: once on connect, then
// again every time any entry in the project changes. The active set is
// recomputed from the full entry set per event; nothing incremental.
func (h *PresenceHandler) Subscribe(c *gin.Context) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}
	selfID := userIDStr.(string)

	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("presence: websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()
	updates := h.registry.Subscribe(ctx, projectID)

	// Reader goroutine: only there to notice the client hanging up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case entries, ok := <-updates:
			if !ok {
				return
			}
			active := presence.ActiveEntries(entries, selfID, time.Now().UTC())
			if err := ws.WriteJSON(models.PresenceListResponse{Users: active}); err != nil {
				log.Printf("presence: failed to write update: %v", err)
				return
			}
		}
	}
}
