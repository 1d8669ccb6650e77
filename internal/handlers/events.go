package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"felicity/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Events.Create(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	query := c.Query("query")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 50"})
		return
	}

	shouldCache := h.shouldCacheEventsRequest(query, pageSize)

	if shouldCache && h.valkeyClient != nil {
		rawJSON, err := h.valkeyClient.GetEventsListRaw(c.Request.Context(), page, pageSize)
		if err == nil {
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	response, err := h.services.Events.List(c.Request.Context(), query, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	if shouldCache && h.valkeyClient != nil {
		h.valkeyClient.SetEventsList(c.Request.Context(), page, pageSize, response)
	}

	c.JSON(http.StatusOK, response)
}

// shouldCacheEventsRequest limits caching to plain first-page style
// browsing. Search results change too often to be worth a cache slot.
func (h *Handlers) shouldCacheEventsRequest(query string, pageSize int) bool {
	if query != "" {
		return false
	}
	return pageSize%5 == 0
}

// ListMyEvents - GET /api/events/mine
func (h *Handlers) ListMyEvents(c *gin.Context) {
	events, err := h.services.Events.ListMine(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateEvent - PATCH /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update event")
		return
	}

	h.invalidateEventsCache(c)
	c.JSON(http.StatusOK, event)
}

// TransitionEvent - PATCH /api/events/:id/status
func (h *Handlers) TransitionEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.TransitionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.services.Events.Transition(c.Request.Context(), principal(c), id, req.Status)
	if err != nil {
		respondError(c, err, "Failed to transition event")
		return
	}

	h.invalidateEventsCache(c)
	c.JSON(http.StatusOK, event)
}

// DeleteEvent - DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Events.Delete(c.Request.Context(), principal(c), id); err != nil {
		respondError(c, err, "Failed to delete event")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListEventRegistrations - GET /api/events/:id/registrations
func (h *Handlers) ListEventRegistrations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	regs, err := h.services.Registrations.ListForEvent(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}

	c.JSON(http.StatusOK, regs)
}

func (h *Handlers) invalidateEventsCache(c *gin.Context) {
	if h.valkeyClient == nil {
		return
	}
	h.valkeyClient.InvalidateEventsList(c.Request.Context())
	slog.Debug("Invalidated events list cache")
}
