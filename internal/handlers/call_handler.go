package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"calls-tracker/internal/auth"
	"calls-tracker/internal/models"
	"calls-tracker/internal/services"
	"calls-tracker/internal/timing"
)

// CallHandler handles call lifecycle endpoints
type CallHandler struct {
	callService *services.CallService
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(callService *services.CallService) *CallHandler {
	return &CallHandler{
		callService: callService,
	}
}

// CreateCall submits a raw prediction and runs it through the pipeline.
// POST /api/calls
func (h *CallHandler) CreateCall(c *gin.Context) {
	callerID, exists := auth.GetCallerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Prediction string  `json:"prediction" binding:"required"`
		Name       string  `json:"name"`
		Wager      *string `json:"wager"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var wager *decimal.Decimal
	if req.Wager != nil {
		parsed, err := decimal.NewFromString(*req.Wager)
		if err != nil || !parsed.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager amount"})
			return
		}
		wager = &parsed
	}

	call, result, err := h.callService.CreateCall(c.Request.Context(), callerID, req.Name, req.Prediction, wager)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidationFailed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "call rejected",
				"violations": result.Violations,
			})
		case errors.Is(err, services.ErrDuplicateEvent):
			c.JSON(http.StatusConflict, gin.H{"error": "a call for this event already exists"})
		case errors.Is(err, timing.ErrUncorrectable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "prediction deadline is already in the past"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create call"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"call":       call,
		"violations": result.Violations,
	})
}

// GetCall fetches one call.
// GET /api/calls/:id
func (h *CallHandler) GetCall(c *gin.Context) {
	call, err := h.callService.GetCall(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrCallNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"call": call})
}

// ListCalls lists calls, optionally filtered by status or caller.
// GET /api/calls?status=open&caller_id=abc&limit=50
func (h *CallHandler) ListCalls(c *gin.Context) {
	status := models.CallStatus(c.Query("status"))
	switch status {
	case "", models.CallStatusOpen, models.CallStatusResolved, models.CallStatusVoid:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	calls, err := h.callService.ListCalls(status, c.Query("caller_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list calls"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}

// ResolveCall settles an open call.
// POST /api/calls/:id/resolve
func (h *CallHandler) ResolveCall(c *gin.Context) {
	if _, exists := auth.GetCallerID(c); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Outcome models.Outcome `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Outcome {
	case models.OutcomeWin, models.OutcomeLoss, models.OutcomeVoid:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be WIN, LOSS or VOID"})
		return
	}

	call, err := h.callService.ResolveCall(c.Request.Context(), c.Param("id"), req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCallNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		case errors.Is(err, services.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "call is already resolved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve call"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"call": call})
}
