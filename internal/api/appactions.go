package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/models"
	"kylas-whatsapp-bridge/internal/wapiy"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// AppActionHandler serves the CRM's embedded app actions: click-to-call on a
// single record and bulk actions over a lead selection. Both end in a
// redirect to the provider's contacts page.
type AppActionHandler struct {
	Accounts *database.AccountStore
	CRM      *kylas.Client
	Tokens   *kylas.TokenManager
	Provider *wapiy.Client
	Log      *slog.Logger
}

func NewAppActionHandler(accounts *database.AccountStore, crm *kylas.Client, tokens *kylas.TokenManager,
	provider *wapiy.Client, log *slog.Logger) *AppActionHandler {
	return &AppActionHandler{Accounts: accounts, CRM: crm, Tokens: tokens, Provider: provider, Log: log}
}

type bulkFilters struct {
	JSONRule struct {
		Rules []struct {
			Field string `json:"field"`
			Value string `json:"value"`
		} `json:"rules"`
	} `json:"jsonRule"`
}

func (h *AppActionHandler) HandleAppAction(c *gin.Context) {
	location := c.Query("location")
	userID := c.Query("userId")

	acc, err := h.Accounts.FindByUserID(userID)
	if err != nil || !acc.Verified {
		c.String(http.StatusForbidden, "User not found or not verified.")
		return
	}
	if !acc.Connected() {
		c.String(http.StatusBadRequest, "Project ID not found.")
		return
	}

	switch location {
	case "CLICK_TO_CALL":
		h.clickToCall(c, acc.ProjectID)
	case "BULK_ACTION":
		h.bulkAction(c, acc)
	default:
		c.String(http.StatusBadRequest, "Invalid action.")
	}
}

func (h *AppActionHandler) clickToCall(c *gin.Context, projectID string) {
	phone := c.Query("phoneNumber")
	if phone == "" {
		c.String(http.StatusBadRequest, "Phone number is required.")
		return
	}

	if err := h.ensureContact(c, projectID, "New Contact", phone); err != nil {
		h.Log.Error("click-to-call contact check failed", "phone", phone, "error", err)
		c.String(http.StatusInternalServerError, "Failed to fetch or create contact.")
		return
	}

	c.Redirect(http.StatusFound, h.Provider.ContactsPageURL(projectID))
}

func (h *AppActionHandler) bulkAction(c *gin.Context, acc *models.LinkedAccount) {
	var filters bulkFilters
	rawFilters := c.PostForm("filters")
	if rawFilters == "" || json.Unmarshal([]byte(rawFilters), &filters) != nil {
		c.String(http.StatusBadRequest, "Invalid form data.")
		return
	}

	var leadIDs []string
	for _, rule := range filters.JSONRule.Rules {
		if rule.Field == "id" {
			leadIDs = strings.Split(rule.Value, ",")
			break
		}
	}
	if len(leadIDs) == 0 {
		c.String(http.StatusBadRequest, "No lead IDs found.")
		return
	}

	auth, err := h.Tokens.AuthFor(c.Request.Context(), acc)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}

	for _, rawID := range leadIDs {
		lead, err := h.CRM.GetLead(c.Request.Context(), auth, cast.ToInt64(rawID))
		if err != nil {
			h.Log.Warn("bulk action lead fetch failed", "lead_id", rawID, "error", err)
			continue
		}
		if len(lead.PhoneNumbers) == 0 {
			continue
		}
		phone := lead.PhoneNumbers[0].Value
		if err := h.ensureContact(c, acc.ProjectID, lead.DisplayName(), phone); err != nil {
			h.Log.Warn("bulk action contact check failed", "lead_id", rawID, "error", err)
		}
	}

	c.Redirect(http.StatusFound, h.Provider.ContactsPageURL(acc.ProjectID))
}

func (h *AppActionHandler) ensureContact(c *gin.Context, projectID, name, phone string) error {
	contact, err := h.Provider.FetchContact(c.Request.Context(), projectID, phone)
	if err != nil {
		return err
	}
	if contact != nil {
		return nil
	}
	_, err = h.Provider.CreateContact(c.Request.Context(), projectID, name, phone)
	return err
}
