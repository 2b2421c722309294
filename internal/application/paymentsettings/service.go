package paymentsettings

import (
	"context"
	"errors"
	"strings"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"
	"trubid-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service stores one PaymentSettings row per seller.
type Service struct {
	DB    *gorm.DB
	Guard database.Guard
}

type SettingsInput struct {
	PayPalEmail         string `json:"paypal_email"`
	CashAppID           string `json:"cashapp_id"`
	CashAppQR           string `json:"cashapp_qr"`
	VenmoID             string `json:"venmo_id"`
	VenmoQR             string `json:"venmo_qr"`
	BankName            string `json:"bank_name"`
	BankAccountName     string `json:"bank_account_name"`
	BankAccountNumber   string `json:"bank_account_number"`
	BankRoutingNumber   string `json:"bank_routing_number"`
	PaymentInstructions string `json:"payment_instructions"`
}

// GetForSeller returns nil, nil when the seller has not configured payments.
func (s *Service) GetForSeller(ctx context.Context, sellerID uuid.UUID) (*domain.PaymentSettings, error) {
	var ps domain.PaymentSettings
	err := s.Guard.Run(ctx, "load payment settings", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("seller_id = ?", sellerID).First(&ps).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

// Upsert creates or replaces the seller's settings.
func (s *Service) Upsert(ctx context.Context, sellerID uuid.UUID, in SettingsInput) (*domain.PaymentSettings, error) {
	in = trim(in)
	if in.PayPalEmail != "" && !validation.IsValidEmail(in.PayPalEmail) {
		return nil, domain.Invalid("paypal_email", "Invalid PayPal email")
	}
	for field, url := range map[string]string{"cashapp_qr": in.CashAppQR, "venmo_qr": in.VenmoQR} {
		if url != "" && !validation.IsValidImageURL(url) {
			return nil, domain.Invalid(field, "QR code must be an http(s) image URL")
		}
	}

	ps := &domain.PaymentSettings{
		SellerID:            sellerID,
		PayPalEmail:         in.PayPalEmail,
		CashAppID:           in.CashAppID,
		CashAppQR:           in.CashAppQR,
		VenmoID:             in.VenmoID,
		VenmoQR:             in.VenmoQR,
		BankName:            in.BankName,
		BankAccountName:     in.BankAccountName,
		BankAccountNumber:   in.BankAccountNumber,
		BankRoutingNumber:   in.BankRoutingNumber,
		PaymentInstructions: in.PaymentInstructions,
	}
	upsert := clause.OnConflict{
		Columns: []clause.Column{{Name: "seller_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"paypal_email", "cashapp_id", "cashapp_qr", "venmo_id", "venmo_qr", "bank_name",
			"bank_account_name", "bank_account_number", "bank_routing_number", "payment_instructions", "updated_at",
		}),
	}
	err := s.Guard.Run(ctx, "save payment settings", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Clauses(upsert).Create(ps).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetForSeller(ctx, sellerID)
}

func trim(in SettingsInput) SettingsInput {
	in.PayPalEmail = strings.TrimSpace(in.PayPalEmail)
	in.CashAppID = strings.TrimSpace(in.CashAppID)
	in.CashAppQR = strings.TrimSpace(in.CashAppQR)
	in.VenmoID = strings.TrimSpace(in.VenmoID)
	in.VenmoQR = strings.TrimSpace(in.VenmoQR)
	in.BankName = strings.TrimSpace(in.BankName)
	in.BankAccountName = strings.TrimSpace(in.BankAccountName)
	in.BankAccountNumber = strings.TrimSpace(in.BankAccountNumber)
	in.BankRoutingNumber = strings.TrimSpace(in.BankRoutingNumber)
	in.PaymentInstructions = strings.TrimSpace(in.PaymentInstructions)
	return in
}
