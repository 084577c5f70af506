package kylas

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *database.AccountStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LinkedAccount{}))
	return database.NewAccountStore(db)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		HTTPClient:   &http.Client{},
	}
}

func TestEnsureAccessTokenRefreshesExpiredToken(t *testing.T) {
	refreshCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		refreshCalls++

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		require.Equal(t, "old-refresh", r.PostFormValue("refresh_token"))

		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    3600,
		})
	}))
	defer srv.Close()

	store := testStore(t)
	now := time.Now()
	acc := &models.LinkedAccount{
		KylasUserID:           "42",
		AccessToken:           "old-access",
		RefreshToken:          "old-refresh",
		AccessTokenExpiresAt:  now.Add(-time.Minute),
		RefreshTokenExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, store.Upsert(acc))

	m := NewTokenManager(testClient(srv.URL), store, discardLogger())

	token, err := m.EnsureAccessToken(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "new-access", token)
	require.Equal(t, 1, refreshCalls)

	saved, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.Equal(t, "new-access", saved.AccessToken)
	require.Equal(t, "new-refresh", saved.RefreshToken)
	require.True(t, saved.AccessTokenExpiresAt.After(now), "expiry must move forward")
	require.True(t, saved.RefreshTokenExpiresAt.After(now.Add(89*24*time.Hour)))
}

func TestEnsureAccessTokenExpiredRefreshToken(t *testing.T) {
	refreshCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
	}))
	defer srv.Close()

	store := testStore(t)
	acc := &models.LinkedAccount{
		KylasUserID:           "42",
		RefreshToken:          "old-refresh",
		AccessTokenExpiresAt:  time.Now().Add(-time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Upsert(acc))

	m := NewTokenManager(testClient(srv.URL), store, discardLogger())

	_, err := m.EnsureAccessToken(context.Background(), acc)
	require.ErrorIs(t, err, ErrReauthorizationRequired)
	require.Equal(t, 0, refreshCalls, "no refresh attempt allowed")
}

func TestEnsureAccessTokenStillValid(t *testing.T) {
	refreshCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
	}))
	defer srv.Close()

	store := testStore(t)
	acc := &models.LinkedAccount{
		KylasUserID:           "42",
		AccessToken:           "still-good",
		RefreshToken:          "refresh",
		AccessTokenExpiresAt:  time.Now().Add(time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.Upsert(acc))

	m := NewTokenManager(testClient(srv.URL), store, discardLogger())

	token, err := m.EnsureAccessToken(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "still-good", token)
	require.Equal(t, 0, refreshCalls)
}

func TestEnsureAccessTokenRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := testStore(t)
	acc := &models.LinkedAccount{
		KylasUserID:           "42",
		RefreshToken:          "refresh",
		AccessTokenExpiresAt:  time.Now().Add(-time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.Upsert(acc))

	m := NewTokenManager(testClient(srv.URL), store, discardLogger())

	_, err := m.EnsureAccessToken(context.Background(), acc)
	require.ErrorIs(t, err, ErrTokenRefreshFailed)
}

func TestAuthForAPIKeyBypassesRefresh(t *testing.T) {
	refreshCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
	}))
	defer srv.Close()

	store := testStore(t)
	acc := &models.LinkedAccount{
		KylasUserID:           "42",
		APIKey:                "static-key",
		AccessTokenExpiresAt:  time.Now().Add(-time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(-time.Hour), // would be terminal on the bearer path
	}
	require.NoError(t, store.Upsert(acc))

	m := NewTokenManager(testClient(srv.URL), store, discardLogger())

	auth, err := m.AuthFor(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, 0, refreshCalls)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	auth.apply(req)
	require.Equal(t, "static-key", req.Header.Get("api-key"))
	require.Empty(t, req.Header.Get("Authorization"))
}
