package models

// WebhookPayload is the envelope of a Wapiy webhook event.
type WebhookPayload struct {
	Topic string      `json:"topic"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Message *InboundMessage `json:"message"`
}

// InboundMessage is a message sent by a WhatsApp user to the business.
type InboundMessage struct {
	PhoneNumber    string         `json:"phone_number"`
	UserName       string         `json:"userName"`
	MessageContent MessageContent `json:"message_content"`
}

// MessageContent carries text, captioned media or bare media.
type MessageContent struct {
	Text    string `json:"text"`
	Caption string `json:"caption"`
	URL     string `json:"url"`
}
