package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trubid-backend/internal/application/events"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"
	"trubid-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Acceptor validates and commits bids. It is the only writer of Listing.current_price for
// active auctions.
type Acceptor struct {
	DB        *gorm.DB
	Guard     database.Guard
	Notifier  Notifier
	Publisher events.Publisher
	Now       func() time.Time
}

type PlaceBidInput struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	IsAutoBid bool
}

// PlaceBid accepts a bid when the listing is active and unexpired, the bidder is not the seller,
// and the amount reaches current_price + bid_increment. The price advance and the bid insert
// commit together, guarded by the listing version read just before.
func (a *Acceptor) PlaceBid(ctx context.Context, in PlaceBidInput) (*domain.Bid, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		listing, err := loadListing(ctx, a.DB, a.Guard, in.ListingID)
		if err != nil {
			return nil, err
		}
		now := utcNow(a.Now)
		if err := checkOpen(listing, in.BidderID, now); err != nil {
			return nil, err
		}
		if err := checkAmount(listing, in.Amount); err != nil {
			return nil, err
		}

		bid := &domain.Bid{
			ID:        uuid.New(),
			ListingID: listing.ID,
			Amount:    in.Amount,
			CreatedBy: in.BidderID,
			Status:    domain.BidActive,
			IsAutoBid: in.IsAutoBid,
		}
		err = a.Guard.Run(ctx, "place bid", func(ctx context.Context) error {
			return a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				res := tx.Model(&domain.Listing{}).
					Where("id = ? AND version = ? AND status = ? AND end_date > ?", listing.ID, listing.Version, domain.ListingActive, now).
					Updates(map[string]interface{}{
						"current_price": in.Amount,
						"version":       gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errListingMoved
				}
				if err := tx.Create(bid).Error; err != nil {
					return err
				}
				return tx.Create(domain.NewListingEvent(listing.ID, domain.EventBidPlaced, &in.BidderID, map[string]interface{}{
					"bid_id":         bid.ID.String(),
					"amount":         in.Amount.StringFixed(2),
					"previous_price": listing.CurrentPrice.StringFixed(2),
				})).Error
			})
		})
		if errors.Is(err, errListingMoved) {
			log.Debug().Str("listing_id", listing.ID.String()).Int("attempt", attempt+1).Msg("bid: listing moved, re-validating")
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().Str("listing_id", listing.ID.String()).Str("bid_id", bid.ID.String()).
			Str("amount", in.Amount.StringFixed(2)).Msg("bid accepted")
		events.Emit(ctx, a.Publisher, events.AuctionEvent{
			Type:      events.BidPlaced,
			ListingID: listing.ID.String(),
			BidID:     bid.ID.String(),
			BidderID:  in.BidderID.String(),
			Amount:    in.Amount.StringFixed(2),
		})
		return bid, nil
	}
	return nil, fmt.Errorf("place bid: %w", domain.ErrStorageUnavailable)
}

// BuyNow ends the auction immediately at buy_now_price. Buy-now is offered only while bidding
// has not reached that price. Every standing bid is marked lost in the same transaction.
func (a *Acceptor) BuyNow(ctx context.Context, listingID, buyerID uuid.UUID) (*domain.Bid, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		listing, err := loadListing(ctx, a.DB, a.Guard, listingID)
		if err != nil {
			return nil, err
		}
		now := utcNow(a.Now)
		if err := checkOpen(listing, buyerID, now); err != nil {
			return nil, err
		}
		if !listing.HasBuyNow() || listing.CurrentPrice.GreaterThanOrEqual(listing.BuyNowPrice.Decimal) {
			return nil, domain.ErrBuyNowUnavailable
		}
		price := listing.BuyNowPrice.Decimal

		bid := &domain.Bid{
			ID:        uuid.New(),
			ListingID: listing.ID,
			Amount:    price,
			CreatedBy: buyerID,
			Status:    domain.BidWon,
		}
		var outbid int64
		err = a.Guard.Run(ctx, "buy now", func(ctx context.Context) error {
			return a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				res := tx.Model(&domain.Listing{}).
					Where("id = ? AND version = ? AND status = ? AND end_date > ?", listing.ID, listing.Version, domain.ListingActive, now).
					Updates(map[string]interface{}{
						"status":        domain.ListingSold,
						"current_price": price,
						"version":       gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errListingMoved
				}
				lost := tx.Model(&domain.Bid{}).
					Where("listing_id = ? AND status = ?", listing.ID, domain.BidActive).
					Update("status", domain.BidLost)
				if lost.Error != nil {
					return lost.Error
				}
				outbid = lost.RowsAffected
				if err := tx.Create(bid).Error; err != nil {
					return err
				}
				return tx.Create(domain.NewListingEvent(listing.ID, domain.EventSold, &buyerID, map[string]interface{}{
					"bid_id":      bid.ID.String(),
					"final_price": price.StringFixed(2),
					"outbid":      outbid,
				})).Error
			})
		})
		if errors.Is(err, errListingMoved) {
			continue
		}
		if err != nil {
			return nil, err
		}

		listing.Status = domain.ListingSold
		listing.CurrentPrice = price
		log.Info().Str("listing_id", listing.ID.String()).Str("bid_id", bid.ID.String()).
			Str("price", price.StringFixed(2)).Int64("outbid", outbid).Msg("listing sold via buy now")
		notifyWinner(ctx, a.Notifier, listing, bid)
		events.Emit(ctx, a.Publisher, events.AuctionEvent{
			Type:       events.AuctionSold,
			ListingID:  listing.ID.String(),
			BidID:      bid.ID.String(),
			BidderID:   buyerID.String(),
			FinalPrice: price.StringFixed(2),
		})
		return bid, nil
	}
	return nil, fmt.Errorf("buy now: %w", domain.ErrStorageUnavailable)
}

// checkAmount runs after the listing checks so a zero or negative amount still reports the
// minimum the bidder has to reach.
func checkAmount(l *domain.Listing, amount decimal.Decimal) error {
	if !validation.HasCentPrecision(amount) {
		return domain.Invalid("amount", "Bid amount must have at most two decimals")
	}
	if min := l.MinimumBid(); amount.LessThan(min) {
		return &domain.BidTooLowError{Minimum: min}
	}
	return nil
}

// notifyWinner runs after commit; a failed notification never undoes the close.
func notifyWinner(ctx context.Context, n Notifier, listing *domain.Listing, winning *domain.Bid) {
	if n == nil {
		return
	}
	if err := n.AuctionWon(context.WithoutCancel(ctx), listing, winning); err != nil {
		log.Error().Err(err).Str("listing_id", listing.ID.String()).Str("bid_id", winning.ID.String()).
			Msg("auction notifications failed")
	}
}
