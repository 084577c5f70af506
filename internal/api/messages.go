package api

import (
	"log/slog"
	"net/http"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/messaging"
	"kylas-whatsapp-bridge/internal/wapiy"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// MessageHandler drives the outbound send path: resolve CRM targets, send
// through the provider, then log one activity per resolved entity.
type MessageHandler struct {
	Accounts   *database.AccountStore
	CRM        *kylas.Client
	Tokens     *kylas.TokenManager
	Resolver   *kylas.Resolver
	Dispatcher *messaging.Dispatcher
	Logger     *messaging.ActivityLogger
	Provider   *wapiy.Client
	Log        *slog.Logger
}

func NewMessageHandler(accounts *database.AccountStore, crm *kylas.Client, tokens *kylas.TokenManager,
	resolver *kylas.Resolver, dispatcher *messaging.Dispatcher, logger *messaging.ActivityLogger,
	provider *wapiy.Client, log *slog.Logger) *MessageHandler {
	return &MessageHandler{
		Accounts:   accounts,
		CRM:        crm,
		Tokens:     tokens,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Logger:     logger,
		Provider:   provider,
		Log:        log,
	}
}

type phoneNumberView struct {
	Type     string `json:"type"`
	Number   string `json:"number"`
	DialCode string `json:"dialCode"`
}

// GetLeadDetails returns the phone numbers of a lead.
func (h *MessageHandler) GetLeadDetails(c *gin.Context) {
	leadID := cast.ToInt64(c.Param("leadId"))
	userID := c.Param("userId")

	acc, err := h.Accounts.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	auth, err := h.Tokens.AuthFor(c.Request.Context(), acc)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	lead, err := h.CRM.GetLead(c.Request.Context(), auth, leadID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to fetch lead details"})
		return
	}
	if len(lead.PhoneNumbers) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No phone numbers found"})
		return
	}

	numbers := make([]phoneNumberView, 0, len(lead.PhoneNumbers))
	for _, p := range lead.PhoneNumbers {
		numbers = append(numbers, phoneNumberView{Type: p.Type, Number: p.Value, DialCode: p.DialCode})
	}

	c.JSON(http.StatusOK, gin.H{"phoneNumbers": numbers})
}

type checkContactRequest struct {
	UserID      string `json:"userId" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Name        string `json:"name"`
}

// CheckOrCreateContact ensures a provider contact exists for the phone
// number and reports its conversation state.
func (h *MessageHandler) CheckOrCreateContact(c *gin.Context) {
	var req checkContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and phone number are required"})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if !acc.Connected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": kylas.ErrNotConnected.Error()})
		return
	}

	contact, err := h.Provider.FetchContact(c.Request.Context(), acc.ProjectID, req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch/create contact"})
		return
	}
	if contact == nil {
		name := req.Name
		if name == "" {
			name = "New Contact"
		}
		contact, err = h.Provider.CreateContact(c.Request.Context(), acc.ProjectID, name, req.PhoneNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch/create contact"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"is_intervened": contact.IsIntervened,
		"is_requesting": contact.IsRequesting,
	})
}

type sendMessageRequest struct {
	UserID     string `json:"userId" binding:"required"`
	To         string `json:"to" binding:"required"`
	Message    string `json:"message"`
	ImageURL   string `json:"imageUrl"`
	EntityType string `json:"entityType"` // "lead" or "deal", optional
	EntityID   int64  `json:"entityId"`
}

// SendMessage sends a plain text or image message and logs it against every
// resolved CRM record.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if !acc.Connected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": kylas.ErrNotConnected.Error()})
		return
	}

	res := h.Resolver.ResolveTargets(c.Request.Context(), acc, req.To, entityRef(req.EntityType, req.EntityID))
	if res.Err != nil {
		c.JSON(statusFor(res.Err), gin.H{"error": res.Err.Error()})
		return
	}

	// Logging needs the project's sender number; without it the whole send
	// is blocked.
	sender, err := h.Dispatcher.SenderNumber(c.Request.Context(), acc)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.Dispatcher.SendText(c.Request.Context(), acc, req.To, req.Message, req.ImageURL); err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to send message"})
		return
	}

	h.Logger.LogResolution(c.Request.Context(), acc, res, messaging.MessageEvent{
		Direction:       messaging.DirectionOutgoing,
		Content:         req.Message,
		SenderNumber:    sender,
		RecipientNumber: req.To,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Message sent successfully!"})
}

type sendTemplateRequest struct {
	UserID     string            `json:"userId" binding:"required"`
	To         string            `json:"to" binding:"required"`
	Template   wapiy.TemplateObj `json:"template" binding:"required"`
	EntityType string            `json:"entityType"`
	EntityID   int64             `json:"entityId"`
}

// SendTemplateMessage sends a template message, resolving placeholder
// markers against the target lead, and logs the rendered text.
func (h *MessageHandler) SendTemplateMessage(c *gin.Context) {
	var req sendTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if !acc.Connected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": kylas.ErrNotConnected.Error()})
		return
	}

	res := h.Resolver.ResolveTargets(c.Request.Context(), acc, req.To, entityRef(req.EntityType, req.EntityID))
	if res.Err != nil {
		c.JSON(statusFor(res.Err), gin.H{"error": res.Err.Error()})
		return
	}
	if len(res.Leads) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching lead for template substitution"})
		return
	}
	lead := res.Leads[0]

	sender, err := h.Dispatcher.SenderNumber(c.Request.Context(), acc)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	rendered, err := h.Dispatcher.SendTemplate(c.Request.Context(), acc, req.To, req.Template, &lead)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.Logger.LogResolution(c.Request.Context(), acc, res, messaging.MessageEvent{
		Direction:       messaging.DirectionOutgoing,
		Content:         rendered.Content,
		Attachments:     rendered.Attachments,
		SenderNumber:    sender,
		RecipientNumber: req.To,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Template message sent successfully!"})
}

func entityRef(entityType string, id int64) *kylas.EntityRef {
	if entityType == "" || id == 0 {
		return nil
	}
	return &kylas.EntityRef{Type: entityType, ID: id}
}
