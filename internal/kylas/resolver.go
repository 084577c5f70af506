package kylas

import (
	"context"
	"fmt"
	"log/slog"

	"kylas-whatsapp-bridge/internal/models"

	"github.com/spf13/cast"
)

// EntityRef is an explicit entity to resolve on the outbound path.
type EntityRef struct {
	Type string // "lead" or "deal"
	ID   int64
}

// ContactDeal pairs a contact with a deal matched by that contact's name.
type ContactDeal struct {
	Contact Contact
	Deal    Deal
}

// Resolution is the outcome of ResolveTargets. Err carries the first stage
// failure; entities resolved before that stage are kept, so callers can log
// against partial results and still surface the error.
type Resolution struct {
	Leads        []Lead
	ContactDeals []ContactDeal
	Err          error
}

// Resolver locates the CRM records a message should be logged against.
type Resolver struct {
	client        *Client
	tokens        *TokenManager
	dealLeadField string
	log           *slog.Logger
}

func NewResolver(client *Client, tokens *TokenManager, dealLeadField string, log *slog.Logger) *Resolver {
	return &Resolver{client: client, tokens: tokens, dealLeadField: dealLeadField, log: log}
}

// ResolveTargets finds the lead for a phone number (or an explicit
// lead/deal reference) plus all (contact, deal) pairs associated with the
// same number. Zero lead matches on the phone path is a no-op outcome, not
// an error.
func (r *Resolver) ResolveTargets(ctx context.Context, acc *models.LinkedAccount, phone string, ref *EntityRef) Resolution {
	var res Resolution

	auth, err := r.tokens.AuthFor(ctx, acc)
	if err != nil {
		res.Err = err
		return res
	}

	if ref != nil {
		lead, err := r.resolveRef(ctx, auth, ref)
		if err != nil {
			res.Err = err
			return res
		}
		res.Leads = append(res.Leads, *lead)
	} else {
		leads, err := r.client.SearchLeadsByPhone(ctx, auth, phone)
		if err != nil {
			res.Err = fmt.Errorf("%w: lead search for %s: %v", ErrResolutionFailed, phone, err)
			return res
		}
		res.Leads = leads
	}

	contacts, err := r.client.SearchContactsByPhone(ctx, auth, phone)
	if err != nil {
		// Leads resolved so far are kept.
		res.Err = fmt.Errorf("%w: contact search for %s: %v", ErrResolutionFailed, phone, err)
		return res
	}

	for _, contact := range contacts {
		// Deals are matched by the contact's display name, not an id join.
		deals, err := r.client.SearchDealsByName(ctx, auth, contact.DisplayName())
		if err != nil {
			res.Err = fmt.Errorf("%w: deal search for %s: %v", ErrResolutionFailed, phone, err)
			return res
		}
		for _, deal := range deals {
			res.ContactDeals = append(res.ContactDeals, ContactDeal{Contact: contact, Deal: deal})
		}
	}

	return res
}

// resolveRef resolves an explicit entity reference to its lead. A deal is
// followed through its cross-reference custom field to the originating lead.
func (r *Resolver) resolveRef(ctx context.Context, auth Auth, ref *EntityRef) (*Lead, error) {
	switch ref.Type {
	case "deal":
		deal, err := r.client.GetDeal(ctx, auth, ref.ID)
		if err != nil {
			return nil, err
		}
		leadID := cast.ToInt64(deal.CustomFieldValues[r.dealLeadField])
		if leadID == 0 {
			return nil, fmt.Errorf("%w: deal %d has no linked lead", ErrEntityNotFound, ref.ID)
		}
		return r.client.GetLead(ctx, auth, leadID)
	case "lead":
		return r.client.GetLead(ctx, auth, ref.ID)
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrEntityNotFound, ref.Type)
	}
}
