package auction

import (
	"context"
	"errors"
	"time"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IsExpired reports whether bidding on l is over at now. Every component that needs to know
// whether an auction has ended asks this function; the end boundary itself is expired.
func IsExpired(l *domain.Listing, now time.Time) bool {
	return !now.Before(l.EndDate)
}

// Notifier receives the winner of an auction once the close has committed.
type Notifier interface {
	AuctionWon(ctx context.Context, listing *domain.Listing, winning *domain.Bid) error
}

// errListingMoved means a compare-and-swap on the listing row matched nothing: another writer
// changed the price or status after it was read.
var errListingMoved = errors.New("listing changed concurrently")

// maxCASAttempts bounds re-reads when writers keep racing on the same listing.
const maxCASAttempts = 8

func utcNow(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}

func loadListing(ctx context.Context, db *gorm.DB, guard database.Guard, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := guard.Run(ctx, "load listing", func(ctx context.Context) error {
		return db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// checkOpen applies the status, expiry and self-bid rules shared by bids and buy-now.
func checkOpen(l *domain.Listing, buyer uuid.UUID, now time.Time) error {
	if l.Status != domain.ListingActive || IsExpired(l, now) {
		return domain.ErrAuctionClosed
	}
	if l.CreatedBy == buyer {
		return domain.ErrSelfBidForbidden
	}
	return nil
}
