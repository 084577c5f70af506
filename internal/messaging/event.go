// Package messaging is the send-and-log pipeline: it dispatches WhatsApp
// messages through Wapiy and records them as message activities on the
// matching Kylas records.
package messaging

import (
	"errors"
	"regexp"

	"kylas-whatsapp-bridge/internal/kylas"

	"github.com/spf13/cast"
)

var (
	// ErrSendFailed means the provider rejected the message. No retry.
	ErrSendFailed = errors.New("message send failed")

	// ErrTemplateNotFound means no provider template with the requested
	// name exists in the project.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateTextUnavailable means the template exists but its body
	// text could not be fetched.
	ErrTemplateTextUnavailable = errors.New("template text unavailable")

	// ErrSenderNumberUnavailable means the project's WhatsApp number could
	// not be obtained. The outbound path needs it for logging, so the send
	// is blocked.
	ErrSenderNumberUnavailable = errors.New("sender phone number unavailable")
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Party identifies one CRM record a message touches.
type Party struct {
	Type string // "lead", "contact" or "deal"
	ID   int64
	Name string
}

// MessageEvent is one logical message to be logged against a CRM record.
type MessageEvent struct {
	Direction       Direction
	Content         string
	Attachments     []kylas.Attachment
	SenderNumber    string
	RecipientNumber string
	Related         Party // lead or deal the activity is related to
	Recipient       Party // lead or contact on the receiving end
}

func (e MessageEvent) status() string {
	if e.Direction == DirectionOutgoing {
		return "sent"
	}
	return "delivered"
}

var nonDigits = regexp.MustCompile(`\D`)

// numericPhone coerces an E.164-ish phone string to the numeric form the
// CRM stores.
func numericPhone(phone string) int64 {
	return cast.ToInt64(nonDigits.ReplaceAllString(phone, ""))
}
