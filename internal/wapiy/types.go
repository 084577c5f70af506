package wapiy

// --- Partner Structures ---

type Business struct {
	BusinessID string   `json:"business_id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	ProjectIDs []string `json:"project_ids"`
}

type Project struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	WANumber    string `json:"wa_number"`
}

type projectListResponse struct {
	Projects []Project `json:"projects"`
}

// --- Contact Structures ---

type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number"`
	IsIntervened bool   `json:"is_intervened"`
	IsRequesting bool   `json:"is_requesting"`
}

// --- Message Structures ---

type MessagePayload struct {
	To       string       `json:"to"`
	Type     string       `json:"type"`
	Text     *TextObj     `json:"text,omitempty"`
	Image    *MediaObj    `json:"image,omitempty"`
	Template *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body string `json:"body"`
}

type MediaObj struct {
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Policy string `json:"policy,omitempty"`
	Code   string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	Parameters []ParameterObj `json:"parameters"`
}

type ParameterObj struct {
	Type          string    `json:"type"`
	Text          string    `json:"text,omitempty"`
	FallbackValue string    `json:"fallback_value,omitempty"`
	Image         *MediaObj `json:"image,omitempty"`
	Video         *MediaObj `json:"video,omitempty"`
	Document      *MediaObj `json:"document,omitempty"`
}

// --- Template Structures ---

// WATemplate is one entry of a project's template list.
type WATemplate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Status   string `json:"status"`
}

// WATemplateDetail is the full template record, including its raw body text
// with positional {{n}} placeholders.
type WATemplateDetail struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}
