package messaging

import (
	"context"
	"log/slog"
	"time"

	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/models"
)

// ActivityLogger writes message activities into the CRM. Logging is
// best-effort bookkeeping: every failure is swallowed and logged, never
// surfaced, so a delivered message is not undone by a logging error.
type ActivityLogger struct {
	crm    *kylas.Client
	tokens *kylas.TokenManager
	log    *slog.Logger
	now    func() time.Time
}

func NewActivityLogger(crm *kylas.Client, tokens *kylas.TokenManager, log *slog.Logger) *ActivityLogger {
	return &ActivityLogger{crm: crm, tokens: tokens, log: log, now: time.Now}
}

// LogMessage records one message activity linked to the event's related
// entity. A deal-related event must carry a contact recipient with a real
// id; without one the entry is skipped with a warning.
func (l *ActivityLogger) LogMessage(ctx context.Context, acc *models.LinkedAccount, event MessageEvent) {
	if event.Related.Type == "deal" && (event.Recipient.Type != "contact" || event.Recipient.ID == 0) {
		l.log.Warn("skipping deal activity without contact",
			"deal_id", event.Related.ID, "kylas_user_id", acc.KylasUserID)
		return
	}

	auth, err := l.tokens.AuthFor(ctx, acc)
	if err != nil {
		l.log.Warn("could not authenticate for activity logging",
			"kylas_user_id", acc.KylasUserID, "error", err)
		return
	}

	recipientNumber := numericPhone(event.RecipientNumber)
	payload := kylas.MessagePayload{
		Content:         event.Content,
		MessageType:     "whatsapp",
		OwnerID:         acc.KylasUserID,
		SenderNumber:    numericPhone(event.SenderNumber),
		RecipientNumber: recipientNumber,
		Direction:       string(event.Direction),
		SentAt:          l.now().UTC().Format(time.RFC3339),
		Status:          event.status(),
		Recipients: []kylas.MessageParty{{
			Entity:      event.Recipient.Type,
			ID:          event.Recipient.ID,
			Name:        event.Recipient.Name,
			PhoneNumber: recipientNumber,
		}},
		RelatedTo: []kylas.MessageParty{{
			Entity:      event.Related.Type,
			ID:          event.Related.ID,
			Name:        event.Recipient.Name,
			PhoneNumber: recipientNumber,
		}},
		Attachments: event.Attachments,
	}
	if payload.Attachments == nil {
		payload.Attachments = []kylas.Attachment{}
	}

	if err := l.crm.LogMessage(ctx, auth, payload); err != nil {
		l.log.Warn("failed to log message in CRM",
			"kylas_user_id", acc.KylasUserID,
			"entity", event.Related.Type, "entity_id", event.Related.ID,
			"error", err)
		return
	}

	l.log.Info("message logged in CRM",
		"entity", event.Related.Type, "entity_id", event.Related.ID,
		"direction", event.Direction)
}

// LogResolution fans one message event out over a resolver result: one
// activity per lead, one per (contact, deal) pair. Each call is independent
// and individually swallowed.
func (l *ActivityLogger) LogResolution(ctx context.Context, acc *models.LinkedAccount, res kylas.Resolution, base MessageEvent) {
	for _, lead := range res.Leads {
		event := base
		event.Related = Party{Type: "lead", ID: lead.ID, Name: lead.DisplayName()}
		event.Recipient = Party{Type: "lead", ID: lead.ID, Name: lead.DisplayName()}
		l.LogMessage(ctx, acc, event)
	}
	for _, cd := range res.ContactDeals {
		event := base
		event.Related = Party{Type: "deal", ID: cd.Deal.ID, Name: cd.Contact.DisplayName()}
		event.Recipient = Party{Type: "contact", ID: cd.Contact.ID, Name: cd.Contact.DisplayName()}
		l.LogMessage(ctx, acc, event)
	}
}
