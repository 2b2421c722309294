package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TemplateAuctionWon        = "auction_won"
	TemplateAdminNotification = "admin_notification"
	TemplateListingCreated    = "listing_created"
)

// EmailTemplate is an admin-editable notification body with {{name}} placeholders.
type EmailTemplate struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TemplateType string    `gorm:"column:template_type;type:varchar(50);not null;uniqueIndex" json:"template_type"`
	FromEmail    string    `gorm:"column:from_email;not null" json:"from_email"`
	Subject      string    `gorm:"column:subject;not null" json:"subject"`
	Body         string    `gorm:"column:body;type:text;not null" json:"body"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_date"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_date"`
}

func (EmailTemplate) TableName() string {
	return "EmailTemplates"
}

func (t *EmailTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
