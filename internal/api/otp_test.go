package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newOTPFixture(t *testing.T, acc *models.LinkedAccount) (*gin.Engine, *database.AccountStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LinkedAccount{}))
	store := database.NewAccountStore(db)
	if acc != nil {
		require.NoError(t, store.Upsert(acc))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewOTPHandler(nil, store, nil, log)

	router := gin.New()
	router.POST("/api/verify-otp", h.VerifyOTP)
	return router, store
}

func postVerify(router *gin.Engine, body gin.H) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/verify-otp", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyOTPSuccess(t *testing.T) {
	router, store := newOTPFixture(t, &models.LinkedAccount{
		KylasUserID:  "42",
		Email:        "jane@example.com",
		BusinessID:   "b1",
		ProjectID:    "p1",
		OTP:          "123456",
		OTPExpiresAt: time.Now().Add(time.Minute),
	})

	w := postVerify(router, gin.H{
		"email": "jane@example.com", "otp": "123456", "kylasUserId": "42",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "b1", resp["businessId"])
	require.Equal(t, "p1", resp["projectId"])
	require.Equal(t, true, resp["verified"])

	acc, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.True(t, acc.Verified)
	require.Empty(t, acc.OTP, "OTP must be single-use")
}

func TestVerifyOTPWrongCode(t *testing.T) {
	router, store := newOTPFixture(t, &models.LinkedAccount{
		KylasUserID:  "42",
		Email:        "jane@example.com",
		OTP:          "123456",
		OTPExpiresAt: time.Now().Add(time.Minute),
	})

	w := postVerify(router, gin.H{
		"email": "jane@example.com", "otp": "654321", "kylasUserId": "42",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	acc, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.False(t, acc.Verified)
}

func TestVerifyOTPExpired(t *testing.T) {
	router, _ := newOTPFixture(t, &models.LinkedAccount{
		KylasUserID:  "42",
		Email:        "jane@example.com",
		OTP:          "123456",
		OTPExpiresAt: time.Now().Add(-time.Minute),
	})

	w := postVerify(router, gin.H{
		"email": "jane@example.com", "otp": "123456", "kylasUserId": "42",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTPUnknownUser(t *testing.T) {
	router, _ := newOTPFixture(t, nil)

	w := postVerify(router, gin.H{
		"email": "jane@example.com", "otp": "123456", "kylasUserId": "42",
	})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateOTP(t *testing.T) {
	otp, err := generateOTP(6)
	require.NoError(t, err)
	require.Len(t, otp, 6)
	for _, r := range otp {
		require.True(t, r >= '0' && r <= '9')
	}
}
