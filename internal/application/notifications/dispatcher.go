package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"trubid-backend/internal/application/emails"
	"trubid-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

var ErrTemplateMissing = errors.New("Email template not found")

// TemplateVariables lists the placeholders each template type is rendered with.
var TemplateVariables = map[string][]string{
	domain.TemplateAuctionWon: {
		"item_title", "winner_name", "winner_email", "final_price",
		"transaction_details", "payment_instructions",
	},
	domain.TemplateAdminNotification: {
		"item_title", "winner_name", "winner_email", "final_price", "auction_details",
	},
	domain.TemplateListingCreated: {
		"seller_name", "item_title", "start_price", "listing_url",
	},
}

// KnownTemplateType reports whether t is one of the supported template types.
func KnownTemplateType(t string) bool {
	_, ok := TemplateVariables[t]
	return ok
}

// TemplateStore looks up the template for a type. A type with no stored template returns nil, nil.
type TemplateStore interface {
	GetByType(ctx context.Context, templateType string) (*domain.EmailTemplate, error)
}

// Dispatcher renders stored templates and hands them to the mailer. A nil Mailer disables mail.
type Dispatcher struct {
	Templates   TemplateStore
	Mailer      emails.Mailer
	DefaultFrom string
}

// Render replaces every {{name}} with vars[name]. Placeholders without a value are left as is.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SendTemplated renders the template of the given type with vars and mails it to recipient.
func (d *Dispatcher) SendTemplated(ctx context.Context, templateType, recipient string, vars map[string]string) error {
	tpl, err := d.Templates.GetByType(ctx, templateType)
	if err != nil {
		return err
	}
	if tpl == nil {
		log.Warn().Str("template_type", templateType).Msg("notification skipped: template missing")
		return fmt.Errorf("%s: %w", templateType, ErrTemplateMissing)
	}
	if d.Mailer == nil {
		log.Info().Str("template_type", templateType).Str("to", recipient).Msg("mail disabled, notification not sent")
		return nil
	}

	from := tpl.FromEmail
	if from == "" {
		from = d.DefaultFrom
	}
	subject := Render(tpl.Subject, vars)
	body := Render(tpl.Body, vars)
	if err := d.Mailer.Send(ctx, recipient, from, subject, body); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", domain.ErrNotificationFailure, templateType, recipient, err)
	}
	log.Info().Str("template_type", templateType).Str("to", recipient).Msg("notification sent")
	return nil
}
