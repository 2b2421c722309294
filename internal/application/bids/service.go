package bids

import (
	"context"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service serves bid history reads and orphan maintenance. Bid placement lives in auction.Acceptor.
type Service struct {
	DB    *gorm.DB
	Guard database.Guard
}

// MyBid is one of the caller's bids with a summary of its listing.
type MyBid struct {
	domain.Bid
	Listing *ListingSummary `json:"listing"`
}

type ListingSummary struct {
	ID           uuid.UUID            `json:"id"`
	Title        string               `json:"title"`
	Status       domain.ListingStatus `json:"status"`
	CurrentPrice string               `json:"current_price"`
	EndDate      string               `json:"end_date"`
	Images       []string             `json:"images"`
}

// MyBids returns the bidder's bids newest first. filter is active, won, lost or all.
func (s *Service) MyBids(ctx context.Context, bidderID uuid.UUID, filter string) ([]MyBid, error) {
	switch filter {
	case "", "all":
		filter = ""
	case string(domain.BidActive), string(domain.BidWon), string(domain.BidLost):
	default:
		return nil, domain.Invalid("filter", "Filter must be one of active, won, lost, all")
	}

	var bids []domain.Bid
	err := s.Guard.Run(ctx, "list my bids", func(ctx context.Context) error {
		q := s.DB.WithContext(ctx).Where("created_by = ?", bidderID)
		if filter != "" {
			q = q.Where("status = ?", filter)
		}
		bids = nil
		return q.Order("created_at DESC").Find(&bids).Error
	})
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return []MyBid{}, nil
	}

	ids := make([]uuid.UUID, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ListingID)
	}
	var listings []domain.Listing
	err = s.Guard.Run(ctx, "load bid listings", func(ctx context.Context) error {
		listings = nil
		return s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*ListingSummary, len(listings))
	for _, l := range listings {
		byID[l.ID] = &ListingSummary{
			ID:           l.ID,
			Title:        l.Title,
			Status:       l.Status,
			CurrentPrice: l.CurrentPrice.StringFixed(2),
			EndDate:      l.EndDate.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Images:       l.Images,
		}
	}

	out := make([]MyBid, 0, len(bids))
	for _, b := range bids {
		out = append(out, MyBid{Bid: b, Listing: byID[b.ListingID]})
	}
	return out, nil
}

// ReconcileOrphans deletes bids whose listing no longer exists and returns how many were removed.
func (s *Service) ReconcileOrphans(ctx context.Context) (int64, error) {
	var removed int64
	err := s.Guard.Run(ctx, "reconcile orphan bids", func(ctx context.Context) error {
		res := s.DB.WithContext(ctx).
			Where("listing_id NOT IN (?)", s.DB.Model(&domain.Listing{}).Select("id")).
			Delete(&domain.Bid{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Warn().Int64("removed", removed).Msg("orphan bids removed")
	}
	return removed, nil
}
