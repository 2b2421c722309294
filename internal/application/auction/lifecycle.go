package auction

import (
	"context"
	"errors"
	"time"

	"trubid-backend/internal/application/events"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Controller performs the active -> ended transition and settles bids.
type Controller struct {
	DB        *gorm.DB
	Guard     database.Guard
	Notifier  Notifier
	Publisher events.Publisher
	Now       func() time.Time
}

// CloseResult describes what a CloseAuction call did. Closed is true only for the call that
// performed the transition; repeated or concurrent calls observe Closed == false.
type CloseResult struct {
	ListingID uuid.UUID            `json:"listing_id"`
	Closed    bool                 `json:"closed"`
	Status    domain.ListingStatus `json:"status"`
	Winner    *domain.Bid          `json:"winner"`
	BidCount  int                  `json:"bid_count"`
}

// CloseAuction ends an expired active listing. The highest bid wins (earliest wins a tie) and
// all other bids lose, in one transaction with the status change. Listings that are not active
// or not yet expired are left alone. Notifications go out after commit, once.
func (c *Controller) CloseAuction(ctx context.Context, listingID uuid.UUID) (*CloseResult, error) {
	now := utcNow(c.Now)
	var listing domain.Listing
	var result CloseResult

	err := c.Guard.Run(ctx, "close auction", func(ctx context.Context) error {
		result = CloseResult{ListingID: listingID}
		return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("id = ?", listingID).First(&listing).Error; err != nil {
				return err
			}
			result.Status = listing.Status
			if listing.Status != domain.ListingActive || !IsExpired(&listing, now) {
				return nil
			}
			res := tx.Model(&domain.Listing{}).
				Where("id = ? AND status = ?", listingID, domain.ListingActive).
				Updates(map[string]interface{}{
					"status":  domain.ListingEnded,
					"version": gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			result.Closed = true
			result.Status = domain.ListingEnded

			var bids []domain.Bid
			if err := tx.Where("listing_id = ?", listingID).
				Order("amount DESC").Order("created_at ASC").Order("id ASC").
				Find(&bids).Error; err != nil {
				return err
			}
			result.BidCount = len(bids)

			data := map[string]interface{}{"bid_count": len(bids)}
			if len(bids) > 0 {
				winner := bids[0]
				if err := tx.Model(&domain.Bid{}).Where("id = ?", winner.ID).
					Update("status", domain.BidWon).Error; err != nil {
					return err
				}
				if err := tx.Model(&domain.Bid{}).Where("listing_id = ? AND id <> ?", listingID, winner.ID).
					Update("status", domain.BidLost).Error; err != nil {
					return err
				}
				winner.Status = domain.BidWon
				result.Winner = &winner
				data["winning_bid_id"] = winner.ID.String()
				data["final_price"] = winner.Amount.StringFixed(2)
			}
			return tx.Create(domain.NewListingEvent(listingID, domain.EventClosed, nil, data)).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !result.Closed {
		return &result, nil
	}

	listing.Status = domain.ListingEnded
	ev := events.AuctionEvent{Type: events.AuctionClosed, ListingID: listingID.String(), BidCount: result.BidCount}
	if w := result.Winner; w != nil {
		log.Info().Str("listing_id", listingID.String()).Str("winning_bid_id", w.ID.String()).
			Str("final_price", w.Amount.StringFixed(2)).Int("bids", result.BidCount).Msg("auction closed")
		notifyWinner(ctx, c.Notifier, &listing, w)
		ev.BidID = w.ID.String()
		ev.BidderID = w.CreatedBy.String()
		ev.FinalPrice = w.Amount.StringFixed(2)
	} else {
		log.Info().Str("listing_id", listingID.String()).Msg("auction closed without bids")
	}
	events.Emit(ctx, c.Publisher, ev)
	return &result, nil
}
