package api

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/mailer"
	"kylas-whatsapp-bridge/internal/models"
	"kylas-whatsapp-bridge/internal/wapiy"

	"github.com/gin-gonic/gin"
)

const otpTTL = 5 * time.Minute

type OTPHandler struct {
	Provider *wapiy.Client
	Accounts *database.AccountStore
	Mailer   *mailer.Mailer
	Log      *slog.Logger
}

func NewOTPHandler(provider *wapiy.Client, accounts *database.AccountStore, m *mailer.Mailer, log *slog.Logger) *OTPHandler {
	return &OTPHandler{Provider: provider, Accounts: accounts, Mailer: m, Log: log}
}

type sendOTPRequest struct {
	Email       string `json:"email" binding:"required"`
	KylasUserID string `json:"kylasUserId" binding:"required"`
}

// SendOTP looks the email up in the partner's business list, stores a fresh
// OTP on the account and mails it out.
func (h *OTPHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and Kylas User ID are required"})
		return
	}

	businesses, err := h.Provider.ListBusinesses(c.Request.Context())
	if err != nil {
		h.Log.Error("business list fetch failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process OTP"})
		return
	}

	var business *wapiy.Business
	for i := range businesses {
		if businesses[i].Email == req.Email {
			business = &businesses[i]
			break
		}
	}
	if business == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Email not found in Wapiy"})
		return
	}

	otp, err := generateOTP(6)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process OTP"})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.KylasUserID)
	if err != nil {
		acc = &models.LinkedAccount{KylasUserID: req.KylasUserID}
	}
	acc.Email = req.Email
	acc.BusinessID = business.BusinessID
	if len(business.ProjectIDs) > 0 {
		acc.ProjectID = business.ProjectIDs[0]
	}
	acc.OTP = otp
	acc.OTPExpiresAt = time.Now().Add(otpTTL)
	if err := h.Accounts.Upsert(acc); err != nil {
		h.Log.Error("failed to persist OTP", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process OTP"})
		return
	}

	if err := h.Mailer.SendOTP(req.Email, otp); err != nil {
		h.Log.Error("OTP mail delivery failed", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process OTP"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "OTP sent successfully!"})
}

type verifyOTPRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	KylasUserID string `json:"kylasUserId" binding:"required"`
}

// VerifyOTP checks the stored OTP and, on match, marks the account verified
// and clears the OTP.
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, OTP, and Kylas User ID are required"})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.KylasUserID)
	if err != nil || acc.Email != req.Email {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if acc.OTP == "" || acc.OTP != req.OTP || time.Now().After(acc.OTPExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		return
	}

	acc.OTP = ""
	acc.OTPExpiresAt = time.Time{}
	acc.Verified = true
	if err := h.Accounts.Save(acc); err != nil {
		h.Log.Error("failed to mark account verified", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "OTP verified successfully! User is now verified.",
		"businessId": acc.BusinessID,
		"projectId":  acc.ProjectID,
		"verified":   true,
	})
}

// generateOTP returns a random numeric code of the given length.
func generateOTP(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
