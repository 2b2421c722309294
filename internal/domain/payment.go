package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentMethodPayPal       = "paypal"
	PaymentMethodCashApp      = "cashapp"
	PaymentMethodVenmo        = "venmo"
	PaymentMethodBankTransfer = "bank_transfer"

	PaymentPending = "pending"
)

// Payment is a winner's request to settle a won auction off-platform. It records contact details
// only; no money moves through the system.
type Payment struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID     uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BidID         uuid.UUID       `gorm:"column:bid_id;type:uuid;not null;uniqueIndex" json:"bid_id"`
	BuyerID       uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"column:payment_method;type:varchar(20);not null" json:"payment_method"`
	BuyerContact  string          `gorm:"column:buyer_contact;not null" json:"buyer_contact"`
	Notes         string          `gorm:"column:notes;type:text" json:"notes"`
	Status        string          `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_date"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_date"`
}

func (Payment) TableName() string {
	return "Payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
