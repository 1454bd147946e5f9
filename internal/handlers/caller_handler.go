package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"calls-tracker/internal/services"
)

// CallerHandler handles caller profile, leaderboard and stats endpoints
type CallerHandler struct {
	callService *services.CallService
}

// NewCallerHandler creates a new CallerHandler
func NewCallerHandler(callService *services.CallService) *CallerHandler {
	return &CallerHandler{
		callService: callService,
	}
}

// GetCaller returns a caller's profile with reputation breakdown.
// GET /api/callers/:id
func (h *CallerHandler) GetCaller(c *gin.Context) {
	profile, err := h.callService.GetCallerProfile(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrCallerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "caller not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load caller"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Leaderboard ranks eligible callers by reputation score.
// GET /api/leaderboard?limit=20
func (h *CallerHandler) Leaderboard(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.callService.Leaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

// Stats returns platform-wide counts.
// GET /api/stats
func (h *CallerHandler) Stats(c *gin.Context) {
	stats, err := h.callService.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
