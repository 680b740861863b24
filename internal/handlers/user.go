package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"baccarat-live-backend/internal/services"
)

type UserHandler struct {
	ledger services.Ledger
}

func NewUserHandler(ledger services.Ledger) *UserHandler {
	return &UserHandler{ledger: ledger}
}

// GetHistory returns the caller's most recent resolved bets, newest first.
func (h *UserHandler) GetHistory(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Login required"})
		return
	}

	entries, err := h.ledger.History(c.Request.Context(), username, services.HistoryLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": entries})
}

// GetMe returns the caller's identity and statistics.
func (h *UserHandler) GetMe(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Login required"})
		return
	}

	user, err := h.ledger.GetUser(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Unknown user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"balance":  user.Balance,
			"wins":     user.Wins,
			"losses":   user.Losses,
			"profit":   user.Profit,
			"winRate":  user.WinRate(),
		},
	})
}
