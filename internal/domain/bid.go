package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidActive BidStatus = "active"
	BidWon    BidStatus = "won"
	BidLost   BidStatus = "lost"
)

// Bid is an offer on a listing. Bids are never deleted while their listing exists; closing an
// auction flips every bid to won or lost.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	CreatedBy uuid.UUID       `gorm:"column:created_by;type:uuid;not null;index" json:"created_by"`
	Status    BidStatus       `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	IsAutoBid bool            `gorm:"column:is_auto_bid;not null;default:false" json:"is_auto_bid"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_date"`
}

func (Bid) TableName() string {
	return "Bids"
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
