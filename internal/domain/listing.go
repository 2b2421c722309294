package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingDraft  ListingStatus = "draft"
	ListingActive ListingStatus = "active"
	ListingEnded  ListingStatus = "ended"
	ListingSold   ListingStatus = "sold"
)

// MaxListingImages caps the image gallery per listing.
const MaxListingImages = 8

// PaymentMethods records which manual payment channels the seller accepts for a listing.
type PaymentMethods struct {
	PayPal       bool `json:"paypal"`
	CashApp      bool `json:"cashapp"`
	Venmo        bool `json:"venmo"`
	BankTransfer bool `json:"bank_transfer"`
}

// AllPaymentMethods is applied when a listing is created without a selection.
func AllPaymentMethods() PaymentMethods {
	return PaymentMethods{PayPal: true, CashApp: true, Venmo: true, BankTransfer: true}
}

// Any reports whether at least one method is enabled.
func (p PaymentMethods) Any() bool {
	return p.PayPal || p.CashApp || p.Venmo || p.BankTransfer
}

// Listing is an item put up for auction. Version is bumped on every price or status write and
// guards those writes with a compare-and-swap.
type Listing struct {
	ID             uuid.UUID                          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title          string                             `gorm:"column:title;not null" json:"title"`
	Description    string                             `gorm:"column:description" json:"description"`
	Category       string                             `gorm:"column:category" json:"category"`
	Condition      string                             `gorm:"column:condition" json:"condition"`
	StartingPrice  decimal.Decimal                    `gorm:"column:starting_price;type:decimal(12,2);not null" json:"starting_price"`
	BidIncrement   decimal.Decimal                    `gorm:"column:bid_increment;type:decimal(12,2);not null" json:"bid_increment"`
	BuyNowPrice    decimal.NullDecimal                `gorm:"column:buy_now_price;type:decimal(12,2)" json:"buy_now_price"`
	CurrentPrice   decimal.Decimal                    `gorm:"column:current_price;type:decimal(12,2);not null" json:"current_price"`
	EndDate        time.Time                          `gorm:"column:end_date;not null;index" json:"end_date"`
	Status         ListingStatus                      `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
	PaymentMethods datatypes.JSONType[PaymentMethods] `gorm:"column:payment_methods;type:json" json:"payment_methods"`
	Images         datatypes.JSONSlice[string]        `gorm:"column:images;type:json" json:"images"`
	CreatedBy      uuid.UUID                          `gorm:"column:created_by;type:uuid;not null;index" json:"created_by"`
	Version        int64                              `gorm:"column:version;not null;default:1" json:"-"`
	CreatedAt      time.Time                          `gorm:"column:created_at" json:"created_date"`
	UpdatedAt      time.Time                          `gorm:"column:updated_at" json:"updated_date"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Version == 0 {
		l.Version = 1
	}
	return nil
}

// MinimumBid is the smallest amount a new regular bid must reach.
func (l *Listing) MinimumBid() decimal.Decimal {
	return l.CurrentPrice.Add(l.BidIncrement).Round(2)
}

// HasBuyNow reports whether a buy-now price is set.
func (l *Listing) HasBuyNow() bool {
	return l.BuyNowPrice.Valid && l.BuyNowPrice.Decimal.IsPositive()
}

// Terminal reports whether the listing has reached ended or sold.
func (l *Listing) Terminal() bool {
	return l.Status == ListingEnded || l.Status == ListingSold
}
