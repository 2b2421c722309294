package listingevents

import (
	"context"
	"errors"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Guard database.Guard
}

// GetListingEvents returns the audit trail of a listing, oldest first, optionally narrowed to
// some event types. Only the seller and admins may read it. Events of deleted listings remain
// readable by admins.
func (s *Service) GetListingEvents(ctx context.Context, listingID, actorID uuid.UUID, admin bool, types ...string) ([]domain.ListingEvent, error) {
	if listingID == uuid.Nil {
		return nil, domain.Invalid("listing_id", "Listing ID is required")
	}

	if !admin {
		var listing domain.Listing
		err := s.Guard.Run(ctx, "load listing", func(ctx context.Context) error {
			return s.DB.WithContext(ctx).Select("id", "created_by").Where("id = ?", listingID).First(&listing).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if listing.CreatedBy != actorID {
			return nil, domain.ErrForbidden
		}
	}

	var events []domain.ListingEvent
	err := s.Guard.Run(ctx, "list listing events", func(ctx context.Context) error {
		q := s.DB.WithContext(ctx).Where("listing_id = ?", listingID)
		if len(types) > 0 {
			q = q.Where("event_type IN ?", types)
		}
		events = nil
		return q.Order("created_at ASC").Find(&events).Error
	})
	return events, err
}
