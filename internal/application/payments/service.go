package payments

import (
	"context"
	"errors"
	"strings"

	"trubid-backend/internal/application/notifications"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrNotWinner        = errors.New("Only the winning bidder can request payment for this listing")
	ErrPaymentRequested = errors.New("A payment request already exists for this listing")
)

// Service records winners' payment requests. Settlement happens outside the platform.
type Service struct {
	DB       *gorm.DB
	Guard    database.Guard
	Settings notifications.SettingsSource
}

// Instructions is what a winner sees after the auction: how to pay and what they owe.
type Instructions struct {
	ListingID        uuid.UUID `json:"listing_id"`
	BidID            uuid.UUID `json:"bid_id"`
	Amount           string    `json:"amount"`
	AvailableMethods []string  `json:"available_methods"`
	InstructionsHTML string    `json:"instructions_html"`
}

type SubmitPaymentInput struct {
	ListingID     uuid.UUID
	BuyerID       uuid.UUID
	PaymentMethod string
	BuyerContact  string
	Notes         string
}

// AvailableMethods lists methods the listing accepts and the seller has credentials for.
func AvailableMethods(methods domain.PaymentMethods, settings *domain.PaymentSettings) []string {
	out := []string{}
	if settings == nil {
		return out
	}
	if methods.PayPal && settings.PayPalEmail != "" {
		out = append(out, domain.PaymentMethodPayPal)
	}
	if methods.CashApp && settings.CashAppID != "" {
		out = append(out, domain.PaymentMethodCashApp)
	}
	if methods.Venmo && settings.VenmoID != "" {
		out = append(out, domain.PaymentMethodVenmo)
	}
	if methods.BankTransfer && settings.BankName != "" && settings.BankAccountNumber != "" {
		out = append(out, domain.PaymentMethodBankTransfer)
	}
	return out
}

// winningBid returns the listing and its won bid when buyerID is the winner.
func (s *Service) winningBid(ctx context.Context, listingID, buyerID uuid.UUID) (*domain.Listing, *domain.Bid, error) {
	var listing domain.Listing
	err := s.Guard.Run(ctx, "load listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !listing.Terminal() {
		return nil, nil, ErrNotWinner
	}
	var bid domain.Bid
	err = s.Guard.Run(ctx, "load winning bid", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).
			Where("listing_id = ? AND status = ? AND created_by = ?", listingID, domain.BidWon, buyerID).
			First(&bid).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotWinner
	}
	if err != nil {
		return nil, nil, err
	}
	return &listing, &bid, nil
}

func (s *Service) settingsFor(ctx context.Context, sellerID uuid.UUID) (*domain.PaymentSettings, error) {
	if s.Settings == nil {
		return nil, nil
	}
	return s.Settings.GetForSeller(ctx, sellerID)
}

// Instructions returns the payment details for the winner of listingID.
func (s *Service) Instructions(ctx context.Context, listingID, buyerID uuid.UUID) (*Instructions, error) {
	listing, bid, err := s.winningBid(ctx, listingID, buyerID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsFor(ctx, listing.CreatedBy)
	if err != nil {
		return nil, err
	}
	methods := listing.PaymentMethods.Data()
	return &Instructions{
		ListingID:        listing.ID,
		BidID:            bid.ID,
		Amount:           bid.Amount.StringFixed(2),
		AvailableMethods: AvailableMethods(methods, settings),
		InstructionsHTML: notifications.PaymentInstructions(settings, methods),
	}, nil
}

// SubmitPaymentRequest records the winner's preferred method and contact as a pending payment.
func (s *Service) SubmitPaymentRequest(ctx context.Context, in SubmitPaymentInput) (*domain.Payment, error) {
	contact := strings.TrimSpace(in.BuyerContact)
	if in.PaymentMethod == "" || contact == "" {
		return nil, domain.Invalid("payment_method", "Please fill out all required fields")
	}
	listing, bid, err := s.winningBid(ctx, in.ListingID, in.BuyerID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsFor(ctx, listing.CreatedBy)
	if err != nil {
		return nil, err
	}
	accepted := false
	for _, m := range AvailableMethods(listing.PaymentMethods.Data(), settings) {
		if m == in.PaymentMethod {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil, domain.Invalid("payment_method", "Payment method is not available for this listing")
	}

	var existing int64
	err = s.Guard.Run(ctx, "count payments", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Model(&domain.Payment{}).Where("bid_id = ?", bid.ID).Count(&existing).Error
	})
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrPaymentRequested
	}
	p := &domain.Payment{
		ListingID:     listing.ID,
		BidID:         bid.ID,
		BuyerID:       in.BuyerID,
		Amount:        bid.Amount,
		PaymentMethod: in.PaymentMethod,
		BuyerContact:  contact,
		Notes:         strings.TrimSpace(in.Notes),
		Status:        domain.PaymentPending,
	}
	err = s.Guard.Run(ctx, "create payment", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", listing.ID.String()).Str("payment_id", p.ID.String()).
		Str("method", p.PaymentMethod).Msg("payment request submitted")
	return p, nil
}

// List returns every payment request, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.Guard.Run(ctx, "list payments", func(ctx context.Context) error {
		out = nil
		return s.DB.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	})
	return out, err
}
