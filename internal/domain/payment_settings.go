package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentSettings holds a seller's manual payment credentials. One row per seller.
type PaymentSettings struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID            uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex" json:"seller_id"`
	PayPalEmail         string    `gorm:"column:paypal_email" json:"paypal_email"`
	CashAppID           string    `gorm:"column:cashapp_id" json:"cashapp_id"`
	CashAppQR           string    `gorm:"column:cashapp_qr" json:"cashapp_qr"`
	VenmoID             string    `gorm:"column:venmo_id" json:"venmo_id"`
	VenmoQR             string    `gorm:"column:venmo_qr" json:"venmo_qr"`
	BankName            string    `gorm:"column:bank_name" json:"bank_name"`
	BankAccountName     string    `gorm:"column:bank_account_name" json:"bank_account_name"`
	BankAccountNumber   string    `gorm:"column:bank_account_number" json:"bank_account_number"`
	BankRoutingNumber   string    `gorm:"column:bank_routing_number" json:"bank_routing_number"`
	PaymentInstructions string    `gorm:"column:payment_instructions;type:text" json:"payment_instructions"`
	CreatedAt           time.Time `gorm:"column:created_at" json:"created_date"`
	UpdatedAt           time.Time `gorm:"column:updated_at" json:"updated_date"`
}

func (PaymentSettings) TableName() string {
	return "PaymentSettings"
}

func (p *PaymentSettings) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
