package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"

	"calls-tracker/internal/auth"
	"calls-tracker/internal/services"
)

// LoginMessage is the exact text wallets must sign to authenticate.
const LoginMessage = "Sign this message to authenticate with Calls Tracker"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	callerService *services.CallerService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(callerService *services.CallerService) *AuthHandler {
	return &AuthHandler{
		callerService: callerService,
	}
}

// WalletLogin authenticates a caller by their Solana wallet address and a
// signature over LoginMessage, issuing a JWT on success.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Name          string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.WalletAddress) < 32 || len(req.WalletAddress) > 44 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	pubKey, err := base58.Decode(req.WalletAddress)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid public key format"})
		return
	}

	// Wallets usually return the signature base58-encoded; accept hex as
	// a fallback.
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		sig, err = hex.DecodeString(req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature format"})
			return
		}
	}

	if !ed25519.Verify(pubKey, []byte(LoginMessage), sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	caller, err := h.callerService.ProcessWalletLogin(req.WalletAddress, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
		return
	}

	token, err := auth.GenerateToken(caller.ID, req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"caller": caller,
	})
}

// GetMe returns the currently authenticated caller's record
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	callerID, exists := auth.GetCallerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	caller, err := h.callerService.GetCallerByID(callerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "caller not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"caller": caller,
	})
}
