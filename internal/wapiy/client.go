// Package wapiy talks to the Wapiy (Redington) WhatsApp Business provider:
// partner business/project listing, project contacts, message sends and
// template lookups. All calls authenticate with the static partner API key.
package wapiy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kylas-whatsapp-bridge/internal/config"
)

type Client struct {
	BaseURL       string
	AppURL        string
	PartnerAPIKey string
	PartnerID     string
	HTTPClient    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:       cfg.WapiyAPIURL,
		AppURL:        cfg.WapiyAppURL,
		PartnerAPIKey: cfg.PartnerAPIKey,
		PartnerID:     cfg.PartnerID,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, rawURL string, body, out any) error {
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
	req.Header.Set("X-Partner-API-Key", c.PartnerAPIKey)
	req.Header.Set("Accept", "application/json")
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

	if resp.StatusCode >= 400 {
		return fmt.Errorf("wapiy API error: %s - %s", resp.Status, string(respBody))
	}

	if out != nil && len(respBody) > 0 && string(respBody) != "null" {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// --- Partner Methods ---

// ListBusinesses returns the partner's business accounts.
func (c *Client) ListBusinesses(ctx context.Context) ([]Business, error) {
	var businesses []Business
	err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/partner-apis/v1/partner/%s/business", c.BaseURL, c.PartnerID), nil, &businesses)
	if err != nil {
		return nil, err
	}
	return businesses, nil
}

// ListProjects returns the projects of a business account.
func (c *Client) ListProjects(ctx context.Context, businessID string) ([]Project, error) {
	var resp projectListResponse
	err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/partner-apis/v1/partner/%s/business/%s/projects", c.BaseURL, c.PartnerID, businessID), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// --- Project Methods ---

// GetProject returns project details, including the WhatsApp sender number.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/project-apis/v1/project/%s", c.BaseURL, projectID), nil, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// FetchContact looks up a project contact by mobile number. A missing
// contact is (nil, nil), not an error.
func (c *Client) FetchContact(ctx context.Context, projectID, mobileNumber string) (*Contact, error) {
	var contact Contact
	rawURL := fmt.Sprintf("%s/project-apis/v1/project/%s/contact?action=FetchContact&mobile_number=%s",
		c.BaseURL, projectID, url.QueryEscape(mobileNumber))
	if err := c.sendRequest(ctx, http.MethodGet, rawURL, nil, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" && contact.MobileNumber == "" {
		return nil, nil
	}
	return &contact, nil
}

// CreateContact creates a project contact.
func (c *Client) CreateContact(ctx context.Context, projectID, name, mobileNumber string) (*Contact, error) {
	var contact Contact
	body := map[string]string{"name": name, "mobile_number": mobileNumber}
	err := c.sendRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/project-apis/v1/project/%s/contact", c.BaseURL, projectID), body, &contact)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// SendMessage posts a text, image or template message under a project.
func (c *Client) SendMessage(ctx context.Context, projectID string, msg MessagePayload) error {
	return c.sendRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/project-apis/v1/project/%s/messages", c.BaseURL, projectID), msg, nil)
}

// --- Template Methods ---

// ListTemplates returns the project's WhatsApp templates.
func (c *Client) ListTemplates(ctx context.Context, projectID string) ([]WATemplate, error) {
	var templates []WATemplate
	err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/project-apis/v1/project/%s/wa_template/", c.BaseURL, projectID), nil, &templates)
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// GetTemplate returns one template with its raw body text.
func (c *Client) GetTemplate(ctx context.Context, projectID, templateID string) (*WATemplateDetail, error) {
	var detail WATemplateDetail
	err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/project-apis/v1/project/%s/wa_template/%s", c.BaseURL, projectID, templateID), nil, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ContactsPageURL is the provider dashboard page app actions redirect to.
func (c *Client) ContactsPageURL(projectID string) string {
	return fmt.Sprintf("%s/projects/%s/contacts", c.AppURL, projectID)
}
