package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trubid-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Directory resolves users for notification addressing.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListAdmins(ctx context.Context) ([]domain.User, error)
}

// SettingsSource returns a seller's payment settings, or nil when the seller has none.
type SettingsSource interface {
	GetForSeller(ctx context.Context, sellerID uuid.UUID) (*domain.PaymentSettings, error)
}

// AuctionNotifier sends the auction_won, admin_notification and listing_created emails.
type AuctionNotifier struct {
	Dispatcher    *Dispatcher
	Users         Directory
	Settings      SettingsSource
	PublicBaseURL string
	Now           func() time.Time
}

func (n *AuctionNotifier) now() time.Time {
	if n.Now == nil {
		return time.Now().UTC()
	}
	return n.Now().UTC()
}

// AuctionWon mails the winner their payment instructions, then notifies every admin and the
// seller. All sends are attempted; failures are joined into the returned error.
func (n *AuctionNotifier) AuctionWon(ctx context.Context, listing *domain.Listing, winning *domain.Bid) error {
	winner, err := n.Users.FindByID(ctx, winning.CreatedBy)
	if err != nil {
		return fmt.Errorf("resolve winner %s: %w", winning.CreatedBy, err)
	}

	var settings *domain.PaymentSettings
	if n.Settings != nil {
		settings, err = n.Settings.GetForSeller(ctx, listing.CreatedBy)
		if err != nil {
			log.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("payment settings unavailable for winner email")
			settings = nil
		}
	}

	at := n.now()
	vars := map[string]string{
		"item_title":           listing.Title,
		"final_price":          winning.Amount.StringFixed(2),
		"winner_name":          localPart(winner.Email),
		"winner_email":         winner.Email,
		"payment_instructions": PaymentInstructions(settings, listing.PaymentMethods.Data()),
		"transaction_details":  TransactionDetails(listing, winning.Amount, at),
		"auction_details":      AuctionDetails(listing, winning.Amount, winner.Email, at),
	}

	var errs []error
	if err := n.Dispatcher.SendTemplated(ctx, domain.TemplateAuctionWon, winner.Email, vars); err != nil {
		errs = append(errs, err)
	}
	recipients, err := n.adminRecipients(ctx, listing.CreatedBy)
	if err != nil {
		errs = append(errs, err)
	}
	for _, to := range recipients {
		if err := n.Dispatcher.SendTemplated(ctx, domain.TemplateAdminNotification, to, vars); err != nil {
			errs = append(errs, err)
			if errors.Is(err, ErrTemplateMissing) {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// adminRecipients returns every admin email plus the seller's, without duplicates.
func (n *AuctionNotifier) adminRecipients(ctx context.Context, sellerID uuid.UUID) ([]string, error) {
	admins, err := n.Users.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	seen := make(map[string]bool, len(admins)+1)
	var out []string
	add := func(email string) {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, email)
	}
	for _, a := range admins {
		add(a.Email)
	}
	seller, err := n.Users.FindByID(ctx, sellerID)
	if err != nil {
		log.Warn().Err(err).Str("seller_id", sellerID.String()).Msg("seller not found for admin notification")
	} else if seller != nil {
		add(seller.Email)
	}
	return out, nil
}

// ListingCreated confirms a new listing to its seller.
func (n *AuctionNotifier) ListingCreated(ctx context.Context, listing *domain.Listing, seller *domain.User) error {
	name := seller.Fullname
	if strings.TrimSpace(name) == "" {
		name = localPart(seller.Email)
	}
	vars := map[string]string{
		"seller_name": name,
		"item_title":  listing.Title,
		"start_price": listing.StartingPrice.StringFixed(2),
		"listing_url": ListingURL(n.PublicBaseURL, listing.ID),
	}
	return n.Dispatcher.SendTemplated(ctx, domain.TemplateListingCreated, seller.Email, vars)
}

// ListingURL is the public page of a listing.
func ListingURL(base string, id uuid.UUID) string {
	return strings.TrimRight(base, "/") + "/Listing?id=" + id.String()
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
