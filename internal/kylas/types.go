package kylas

import "strings"

// TokenResponse is the body of a successful OAuth token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// User is the authenticated CRM user (GET /v1/users/me).
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PhoneNumber is one entry of an entity's phoneNumbers list.
type PhoneNumber struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	DialCode string `json:"dialCode"`
	Primary  bool   `json:"primary"`
}

// Lead is a CRM lead, read-only from the bridge's perspective.
type Lead struct {
	ID                int64          `json:"id"`
	FirstName         string         `json:"firstName"`
	LastName          string         `json:"lastName"`
	CompanyName       string         `json:"companyName"`
	PhoneNumbers      []PhoneNumber  `json:"phoneNumbers"`
	CustomFieldValues map[string]any `json:"customFieldValues"`
	UpdatedAt         string         `json:"updatedAt"`
}

// DisplayName is the concatenated first+last name, trimmed.
func (l Lead) DisplayName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Contact is a CRM contact.
type Contact struct {
	ID           int64         `json:"id"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	Company      string        `json:"company"`
	Designation  string        `json:"designation"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers"`
}

func (c Contact) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Deal is a CRM deal. The lead it originated from is carried in a custom
// field, not a foreign key.
type Deal struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	CustomFieldValues map[string]any `json:"customFieldValues"`
}

// searchRule is one rule of the jsonRule search body.
type searchRule struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Type     string `json:"type"`
	Input    string `json:"input"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type jsonRule struct {
	Condition string       `json:"condition"`
	Valid     bool         `json:"valid"`
	Rules     []searchRule `json:"rules"`
}

type searchRequest struct {
	Fields   []string `json:"fields,omitempty"`
	JSONRule jsonRule `json:"jsonRule"`
}

// multiFieldSearch builds the free-text rule body used by all three search
// endpoints.
func multiFieldSearch(value string, fields ...string) searchRequest {
	return searchRequest{
		Fields: fields,
		JSONRule: jsonRule{
			Condition: "AND",
			Valid:     true,
			Rules: []searchRule{{
				ID:       "multi_field",
				Field:    "multi_field",
				Type:     "multi_field",
				Input:    "multi_field",
				Operator: "multi_field",
				Value:    value,
			}},
		},
	}
}

// MessageParty appears in the recipients and relatedTo lists of a message
// activity.
type MessageParty struct {
	Entity      string `json:"entity"`
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber int64  `json:"phoneNumber"`
}

// Attachment is a logged file reference.
type Attachment struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// MessagePayload is the body of POST /v1/messages.
type MessagePayload struct {
	Content         string         `json:"content"`
	MessageType     string         `json:"messageType"`
	OwnerID         string         `json:"ownerId"`
	SenderNumber    int64          `json:"senderNumber"`
	RecipientNumber int64          `json:"recipientNumber"`
	Direction       string         `json:"direction"`
	SentAt          string         `json:"sentAt"`
	Status          string         `json:"status"`
	Recipients      []MessageParty `json:"recipients"`
	RelatedTo       []MessageParty `json:"relatedTo"`
	Attachments     []Attachment   `json:"attachments"`
}
