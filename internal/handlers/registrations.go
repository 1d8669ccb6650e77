package handlers

import (
	"io"
	"net/http"
	"strconv"

	"felicity/internal/models"

	"github.com/gin-gonic/gin"
)

// Payment proofs are phone photos of UPI receipts; 10 MiB is generous.
const maxProofSize = 10 << 20

// CreateRegistration - POST /api/registrations
func (h *Handlers) CreateRegistration(c *gin.Context) {
	var req models.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Registrations.Register(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create registration")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListRegistrations - GET /api/registrations
func (h *Handlers) ListRegistrations(c *gin.Context) {
	regs, err := h.services.Registrations.List(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}

	c.JSON(http.StatusOK, regs)
}

// CancelRegistration - PATCH /api/registrations/cancel
func (h *Handlers) CancelRegistration(c *gin.Context) {
	var req models.CancelRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Registrations.Cancel(c.Request.Context(), principal(c), &req); err != nil {
		respondError(c, err, "Failed to cancel registration")
		return
	}

	c.Status(http.StatusOK)
}

// UploadProof - POST /api/registrations/:id/proof
func (h *Handlers) UploadProof(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("proof")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxProofSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read proof file"})
		return
	}
	if len(data) > maxProofSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "proof file too large"})
		return
	}

	response, err := h.services.Payments.UploadProof(c.Request.Context(), principal(c), id, data)
	if err != nil {
		respondError(c, err, "Failed to upload proof")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetProof - GET /api/registrations/:id/proof
func (h *Handlers) GetProof(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	data, err := h.services.Payments.ProofImage(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err, "Failed to get proof")
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", data)
}

// ApprovePayment - PATCH /api/registrations/approve
func (h *Handlers) ApprovePayment(c *gin.Context) {
	var req models.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Payments.Approve(c.Request.Context(), principal(c), &req); err != nil {
		respondError(c, err, "Failed to approve payment")
		return
	}

	c.Status(http.StatusOK)
}

// RejectPayment - PATCH /api/registrations/reject
func (h *Handlers) RejectPayment(c *gin.Context) {
	var req models.RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Payments.Reject(c.Request.Context(), principal(c), &req); err != nil {
		respondError(c, err, "Failed to reject payment")
		return
	}

	c.Status(http.StatusOK)
}

// GetTicket - GET /api/registrations/:id/ticket
func (h *Handlers) GetTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size < 64 || size > 1024 {
		size = 256
	}

	png, err := h.services.Registrations.TicketPNG(c.Request.Context(), principal(c), id, size)
	if err != nil {
		respondError(c, err, "Failed to render ticket")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
