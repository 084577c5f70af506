// Package webhook receives inbound provider events and fans them out into
// CRM message activities via the resolver and activity logger.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/messaging"
	dbmodels "kylas-whatsapp-bridge/internal/models"
	"kylas-whatsapp-bridge/pkg/models"

	"github.com/gin-gonic/gin"
)

const topicInboundMessage = "message.sender.user"

type Handler struct {
	Accounts   *database.AccountStore
	Resolver   *kylas.Resolver
	Dispatcher *messaging.Dispatcher
	Logger     *messaging.ActivityLogger
	// Secret enables HMAC-SHA256 signature verification over the raw body.
	// Empty disables the check.
	Secret string
	Log    *slog.Logger
}

func NewHandler(accounts *database.AccountStore, resolver *kylas.Resolver, dispatcher *messaging.Dispatcher, logger *messaging.ActivityLogger, secret string, log *slog.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Logger:     logger,
		Secret:     secret,
		Log:        log,
	}
}

// HandleEvent processes one provider webhook delivery. The project id header
// selects the linked account; only the inbound-message topic is processed.
// Once processing starts the handler answers 200 regardless of downstream
// outcomes, so the provider does not retry-storm us.
func (h *Handler) HandleEvent(c *gin.Context) {
	projectID := c.GetHeader("x-project-id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Project ID"})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	if h.Secret != "" && !h.verifySignature(raw, c.GetHeader("x-webhook-signature")) {
		h.Log.Warn("webhook signature mismatch", "project_id", projectID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	account, err := h.Accounts.FindByProjectID(projectID)
	if err != nil {
		h.Log.Warn("webhook for unknown project", "project_id", projectID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown project"})
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	switch payload.Topic {
	case topicInboundMessage:
		h.handleInboundMessage(c, account, payload)
	default:
		h.Log.Info("ignoring webhook topic", "topic", payload.Topic)
	}

	c.Status(http.StatusOK)
}

func (h *Handler) handleInboundMessage(c *gin.Context, account *dbmodels.LinkedAccount, payload models.WebhookPayload) {
	msg := payload.Data.Message
	if msg == nil || msg.PhoneNumber == "" {
		h.Log.Warn("inbound event without message", "project_id", account.ProjectID)
		return
	}

	content, attachments := extractContent(msg.MessageContent)
	h.Log.Info("inbound WhatsApp message", "phone", msg.PhoneNumber, "kylas_user_id", account.KylasUserID)

	res := h.Resolver.ResolveTargets(c.Request.Context(), account, msg.PhoneNumber, nil)
	if res.Err != nil {
		// Whatever resolved before the failure still gets logged.
		h.Log.Warn("partial resolution on inbound message",
			"phone", msg.PhoneNumber, "error", res.Err)
	}
	if len(res.Leads) == 0 && len(res.ContactDeals) == 0 {
		h.Log.Info("no matching CRM records", "phone", msg.PhoneNumber)
		return
	}

	// Best-effort on the inbound path: a missing sender number downgrades
	// the log entries instead of dropping them.
	sender, err := h.Dispatcher.SenderNumber(c.Request.Context(), account)
	if err != nil {
		h.Log.Warn("sender number lookup failed", "project_id", account.ProjectID, "error", err)
	}

	h.Logger.LogResolution(c.Request.Context(), account, res, messaging.MessageEvent{
		Direction:       messaging.DirectionIncoming,
		Content:         content,
		Attachments:     attachments,
		SenderNumber:    sender,
		RecipientNumber: msg.PhoneNumber,
	})
}

// extractContent maps the three inbound content shapes (text, caption+media,
// bare media) to a log line plus attachments.
func extractContent(mc models.MessageContent) (string, []kylas.Attachment) {
	switch {
	case mc.Text != "":
		return mc.Text, nil
	case mc.Caption != "" && mc.URL != "":
		return mc.Caption, []kylas.Attachment{{FileName: "incoming-media.jpg", URL: mc.URL}}
	case mc.URL != "":
		return "New WhatsApp message", []kylas.Attachment{{FileName: "incoming-media.jpg", URL: mc.URL}}
	default:
		return "New WhatsApp message", nil
	}
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
