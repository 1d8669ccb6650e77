package handlers

import (
	"net/http"

	"felicity/internal/middleware"
	"felicity/internal/models"

	"github.com/gin-gonic/gin"
)

// ScanTicket - POST /api/attendance/scan
func (h *Handlers) ScanTicket(c *gin.Context) {
	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Attendance.Scan(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err, "Failed to scan ticket")
		return
	}

	middleware.ObserveScan(response.Result)
	c.JSON(http.StatusOK, response)
}

// OverrideAttendance - POST /api/attendance/override
func (h *Handlers) OverrideAttendance(c *gin.Context) {
	var req models.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Attendance.Override(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err, "Failed to override attendance")
		return
	}

	c.JSON(http.StatusOK, response)
}
