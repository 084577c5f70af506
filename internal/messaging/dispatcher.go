package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/models"
	"kylas-whatsapp-bridge/internal/wapiy"
)

// Placeholder markers a stored template parameter may carry. They are
// resolved against the live CRM lead at send time.
const (
	markerLeadName    = "lead_name"
	markerCompanyName = "company_name"
)

// Dispatcher sends WhatsApp messages through the provider on behalf of a
// linked project.
type Dispatcher struct {
	provider *wapiy.Client
	log      *slog.Logger
}

func NewDispatcher(provider *wapiy.Client, log *slog.Logger) *Dispatcher {
	return &Dispatcher{provider: provider, log: log}
}

// SenderNumber looks up the project's WhatsApp number. It is not stored
// locally; the provider is the source of truth.
func (d *Dispatcher) SenderNumber(ctx context.Context, acc *models.LinkedAccount) (string, error) {
	if !acc.Connected() {
		return "", kylas.ErrNotConnected
	}
	project, err := d.provider.GetProject(ctx, acc.ProjectID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSenderNumberUnavailable, err)
	}
	if project.WANumber == "" {
		return "", ErrSenderNumberUnavailable
	}
	return project.WANumber, nil
}

// SendText sends a single text or image message.
func (d *Dispatcher) SendText(ctx context.Context, acc *models.LinkedAccount, to, body, imageURL string) error {
	if !acc.Connected() {
		return kylas.ErrNotConnected
	}

	msg := wapiy.MessagePayload{To: to, Type: "text", Text: &wapiy.TextObj{Body: body}}
	if imageURL != "" {
		msg = wapiy.MessagePayload{To: to, Type: "image", Image: &wapiy.MediaObj{Link: imageURL, Caption: body}}
	}

	if err := d.provider.SendMessage(ctx, acc.ProjectID, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// RenderedTemplate is what SendTemplate produces for logging: the template
// text with placeholders substituted, plus any media attachments.
type RenderedTemplate struct {
	Content     string
	Attachments []kylas.Attachment
}

// SendTemplate sends a template message. The template is looked up by exact
// name within the project's list and its raw text fetched for the display
// copy; markers in the stored parameters are resolved against the lead and
// substituted positionally into {{n}} placeholders. The provider payload
// carries the structured per-parameter values, not the substituted string.
func (d *Dispatcher) SendTemplate(ctx context.Context, acc *models.LinkedAccount, to string, tpl wapiy.TemplateObj, lead *kylas.Lead) (*RenderedTemplate, error) {
	if !acc.Connected() {
		return nil, kylas.ErrNotConnected
	}

	templates, err := d.provider.ListTemplates(ctx, acc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}
	var found *wapiy.WATemplate
	for i := range templates {
		if templates[i].Name == tpl.Name {
			found = &templates[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, tpl.Name)
	}

	detail, err := d.provider.GetTemplate(ctx, acc.ProjectID, found.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateTextUnavailable, err)
	}

	resolved, rendered := renderTemplate(tpl, detail.Text, lead)

	msg := wapiy.MessagePayload{To: to, Type: "template", Template: &resolved}
	if err := d.provider.SendMessage(ctx, acc.ProjectID, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return rendered, nil
}

// renderTemplate resolves markers against the lead and substitutes the n-th
// text parameter into the {{n}} placeholder of a display copy of the text.
// Media parameters are collected as attachments.
func renderTemplate(tpl wapiy.TemplateObj, rawText string, lead *kylas.Lead) (wapiy.TemplateObj, *RenderedTemplate) {
	rendered := &RenderedTemplate{Content: rawText}

	resolved := tpl
	resolved.Components = make([]wapiy.ComponentObj, len(tpl.Components))
	n := 0
	for i, comp := range tpl.Components {
		params := make([]wapiy.ParameterObj, len(comp.Parameters))
		for j, param := range comp.Parameters {
			switch {
			case param.Image != nil:
				rendered.Attachments = append(rendered.Attachments, mediaAttachment(param.Image, "image"))
			case param.Video != nil:
				rendered.Attachments = append(rendered.Attachments, mediaAttachment(param.Video, "video"))
			case param.Document != nil:
				rendered.Attachments = append(rendered.Attachments, mediaAttachment(param.Document, "document"))
			default:
				n++
				value := resolveMarker(param.Text, lead)
				if value == "" {
					value = param.FallbackValue
				}
				param.Text = value
				placeholder := fmt.Sprintf("{{%d}}", n)
				rendered.Content = strings.Replace(rendered.Content, placeholder, value, 1)
			}
			params[j] = param
		}
		resolved.Components[i] = wapiy.ComponentObj{Type: comp.Type, Parameters: params}
	}

	return resolved, rendered
}

func resolveMarker(marker string, lead *kylas.Lead) string {
	if lead == nil {
		return ""
	}
	switch marker {
	case markerLeadName:
		return lead.DisplayName()
	case markerCompanyName:
		return lead.CompanyName
	default:
		// Literal parameter values pass through untouched.
		return marker
	}
}

func mediaAttachment(media *wapiy.MediaObj, kind string) kylas.Attachment {
	name := media.Filename
	if name == "" {
		if u, err := url.Parse(media.Link); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") {
				name = base
			}
		}
	}
	if name == "" {
		name = "template-" + kind
	}
	return kylas.Attachment{FileName: name, URL: media.Link}
}
