package kylas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kylas-whatsapp-bridge/internal/config"
)

// Client is a thin Kylas REST API client. Calls authenticated per-account
// take an Auth value; the two OAuth grant calls authenticate with Basic
// client credentials instead.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	HTTPClient   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:      cfg.KylasAPIURL,
		ClientID:     cfg.KylasClientID,
		ClientSecret: cfg.KylasClientSecret,
		RedirectURI:  cfg.KylasRedirectURI,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Auth selects between the two coexisting auth schemes: the OAuth bearer
// token used by older endpoints and the static api-key used by newer ones.
type Auth struct {
	mode  authMode
	value string
}

type authMode int

const (
	authBearer authMode = iota
	authAPIKey
)

func BearerAuth(token string) Auth {
	return Auth{mode: authBearer, value: token}
}

func APIKeyAuth(key string) Auth {
	return Auth{mode: authAPIKey, value: key}
}

func (a Auth) apply(req *http.Request) {
	switch a.mode {
	case authAPIKey:
		req.Header.Set("api-key", a.value)
	default:
		req.Header.Set("Authorization", "Bearer "+a.value)
	}
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, rawURL string, auth Auth, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return err
	}
	auth.apply(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, rawURL)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("kylas API error: %s - %s", resp.Status, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// tokenGrant posts an x-www-form-urlencoded grant to the OAuth token
// endpoint with Basic client credentials.
func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("token grant failed: %s - %s", resp.Status, string(respBody))
	}

	var tok TokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// --- OAuth ---

// ExchangeAuthCode runs the authorization_code grant.
func (c *Client) ExchangeAuthCode(ctx context.Context, authCode string) (*TokenResponse, error) {
	return c.tokenGrant(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {authCode},
		"redirect_uri": {c.RedirectURI},
	})
}

// RefreshAccessToken runs the refresh_token grant. The CRM rotates the
// refresh token on every exchange.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.tokenGrant(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// CurrentUser fetches the user the access token belongs to.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.sendRequest(ctx, http.MethodGet, c.BaseURL+"/v1/users/me", BearerAuth(accessToken), nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Entities ---

func (c *Client) GetLead(ctx context.Context, auth Auth, id int64) (*Lead, error) {
	var lead Lead
	err := c.sendRequest(ctx, http.MethodGet, fmt.Sprintf("%s/v1/leads/%d", c.BaseURL, id), auth, nil, &lead)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) GetDeal(ctx context.Context, auth Auth, id int64) (*Deal, error) {
	var deal Deal
	err := c.sendRequest(ctx, http.MethodGet, fmt.Sprintf("%s/v1/deals/%d", c.BaseURL, id), auth, nil, &deal)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// --- Search ---

var leadSearchFields = []string{
	"firstName", "lastName", "phoneNumbers", "emails", "companyName",
	"createdAt", "updatedAt", "id", "latestActivityCreatedAt",
	"recordActions", "customFieldValues",
}

var contactSearchFields = []string{
	"firstName", "lastName", "ownerId", "company", "designation",
	"id", "recordActions", "customFieldValues",
}

type leadSearchResponse struct {
	Content []Lead `json:"content"`
}

type contactSearchResponse struct {
	Content []Contact `json:"content"`
}

type dealSearchResponse struct {
	Content []Deal `json:"content"`
}

// plusPhone prefixes the number with "+" the way the search API expects it.
func plusPhone(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}

// SearchLeadsByPhone returns the most recently updated lead matching the
// phone number. Single result page, size 1.
func (c *Client) SearchLeadsByPhone(ctx context.Context, auth Auth, phone string) ([]Lead, error) {
	var resp leadSearchResponse
	err := c.sendRequest(ctx, http.MethodPost,
		c.BaseURL+"/v1/search/lead?sort=updatedAt,desc&page=0&size=1",
		auth, multiFieldSearch(plusPhone(phone), leadSearchFields...), &resp)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// SearchContactsByPhone returns contacts matching the phone number,
// most recently updated first.
func (c *Client) SearchContactsByPhone(ctx context.Context, auth Auth, phone string) ([]Contact, error) {
	var resp contactSearchResponse
	err := c.sendRequest(ctx, http.MethodPost,
		c.BaseURL+"/v1/search/contact?sort=updatedAt,desc&page=0&size=10",
		auth, multiFieldSearch(plusPhone(phone), contactSearchFields...), &resp)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// SearchDealsByName returns deals matching a contact display name. This is a
// textual match, not an id join; name collisions can over-match.
func (c *Client) SearchDealsByName(ctx context.Context, auth Auth, name string) ([]Deal, error) {
	var resp dealSearchResponse
	err := c.sendRequest(ctx, http.MethodPost,
		c.BaseURL+"/v1/search/deal?page=0&size=10&sort=updatedAt,desc",
		auth, multiFieldSearch(name), &resp)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// --- Activity ---

// LogMessage writes a message activity into the CRM.
func (c *Client) LogMessage(ctx context.Context, auth Auth, payload MessagePayload) error {
	return c.sendRequest(ctx, http.MethodPost, c.BaseURL+"/v1/messages", auth, payload, nil)
}
