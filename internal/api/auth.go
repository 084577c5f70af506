package api

import (
	"log/slog"
	"net/http"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type AuthHandler struct {
	CRM      *kylas.Client
	Accounts *database.AccountStore
	Log      *slog.Logger
}

func NewAuthHandler(crm *kylas.Client, accounts *database.AccountStore, log *slog.Logger) *AuthHandler {
	return &AuthHandler{CRM: crm, Accounts: accounts, Log: log}
}

type callbackRequest struct {
	AuthCode string `json:"authCode" binding:"required"`
}

// KylasCallback exchanges the OAuth authorization code, identifies the CRM
// user and upserts the linked account. Verification happens later via OTP.
func (h *AuthHandler) KylasCallback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Auth code missing"})
		return
	}

	tok, err := h.CRM.ExchangeAuthCode(c.Request.Context(), req.AuthCode)
	if err != nil {
		h.Log.Error("auth code exchange failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Kylas authentication failed"})
		return
	}

	user, err := h.CRM.CurrentUser(c.Request.Context(), tok.AccessToken)
	if err != nil {
		h.Log.Error("users/me lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Kylas authentication failed"})
		return
	}

	now := time.Now()
	acc := &models.LinkedAccount{
		KylasUserID:           cast.ToString(user.ID),
		Email:                 user.Email,
		AccessToken:           tok.AccessToken,
		RefreshToken:          tok.RefreshToken,
		AccessTokenExpiresAt:  now.Add(time.Duration(tok.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(90 * 24 * time.Hour),
		Verified:              false,
	}
	if err := h.Accounts.Upsert(acc); err != nil {
		h.Log.Error("failed to persist linked account", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Kylas authentication successful!",
		"kylasUserId": acc.KylasUserID,
	})
}
