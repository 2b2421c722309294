package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventCreated    = "CREATED"
	EventUpdated    = "UPDATED"
	EventPublished  = "PUBLISHED"
	EventDuplicated = "DUPLICATED"
	EventBidPlaced  = "BID_PLACED"
	EventClosed     = "CLOSED"
	EventSold       = "SOLD"
	EventDeleted    = "DELETED"
)

// ListingEvent is the audit trail of a listing. Rows are written in the same transaction as the
// change they describe.
type ListingEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_date"`
}

func (ListingEvent) TableName() string {
	return "ListingEvents"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}

// NewListingEvent builds an event row; data is marshalled to JSON.
func NewListingEvent(listingID uuid.UUID, eventType string, actor *uuid.UUID, data map[string]interface{}) *ListingEvent {
	b, err := json.Marshal(data)
	if err != nil || data == nil {
		b = []byte("{}")
	}
	return &ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(b),
		ActorID:   actor,
	}
}
