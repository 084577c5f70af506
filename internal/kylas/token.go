package kylas

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/models"
)

// The CRM does not report the refresh token's own lifetime; it is a fixed
// 90-day window from the last rotation.
const refreshTokenTTL = 90 * 24 * time.Hour

// TokenManager keeps an account's OAuth access token valid, refreshing and
// persisting it when expired. It only operates on the bearer scheme; api-key
// accounts bypass it entirely via AuthFor.
type TokenManager struct {
	client *Client
	store  *database.AccountStore
	log    *slog.Logger
	now    func() time.Time
}

func NewTokenManager(client *Client, store *database.AccountStore, log *slog.Logger) *TokenManager {
	return &TokenManager{client: client, store: store, log: log, now: time.Now}
}

// EnsureAccessToken returns a valid access token for the account, performing
// at most one refresh-token exchange. The refreshed tokens are written back
// to both the store and the passed account.
func (m *TokenManager) EnsureAccessToken(ctx context.Context, acc *models.LinkedAccount) (string, error) {
	now := m.now()

	if !acc.RefreshTokenExpiresAt.IsZero() && now.After(acc.RefreshTokenExpiresAt) {
		return "", ErrReauthorizationRequired
	}

	if acc.AccessTokenExpiresAt.IsZero() || now.After(acc.AccessTokenExpiresAt) {
		m.log.Info("access token expired, refreshing", "kylas_user_id", acc.KylasUserID)

		tok, err := m.client.RefreshAccessToken(ctx, acc.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
		}

		acc.AccessToken = tok.AccessToken
		acc.RefreshToken = tok.RefreshToken
		acc.AccessTokenExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
		acc.RefreshTokenExpiresAt = now.Add(refreshTokenTTL)

		if err := m.store.Save(acc); err != nil {
			return "", fmt.Errorf("persist refreshed token: %w", err)
		}
		return tok.AccessToken, nil
	}

	return acc.AccessToken, nil
}

// AuthFor returns the auth variant for the account: the static api-key when
// present, otherwise a bearer token guaranteed valid by EnsureAccessToken.
func (m *TokenManager) AuthFor(ctx context.Context, acc *models.LinkedAccount) (Auth, error) {
	if acc.UsesAPIKey() {
		return APIKeyAuth(acc.APIKey), nil
	}
	token, err := m.EnsureAccessToken(ctx, acc)
	if err != nil {
		return Auth{}, err
	}
	return BearerAuth(token), nil
}
