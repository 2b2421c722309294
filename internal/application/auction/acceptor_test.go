package auction

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestIsExpired(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := &domain.Listing{EndDate: end}
	assert.False(t, IsExpired(l, end.Add(-time.Nanosecond)))
	assert.True(t, IsExpired(l, end))
	assert.True(t, IsExpired(l, end.Add(time.Second)))
}

func TestPlaceBid_FullAuction(t *testing.T) {
	f := setupAuctionTest(t)
	ctx := context.Background()
	listing := f.seedListing(t, nil)
	alice, bob := uuid.New(), uuid.New()

	first, err := f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: alice, Amount: dec("105")})
	require.NoError(t, err)

	_, err = f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: bob, Amount: dec("100")})
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.ErrorIs(t, err, domain.ErrBidTooLow)
	assert.True(t, tooLow.Minimum.Equal(dec("110")), "minimum was %s", tooLow.Minimum)

	second, err := f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: bob, Amount: dec("120")})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	res, err := f.controller.CloseAuction(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, res.Closed)
	require.NotNil(t, res.Winner)
	assert.Equal(t, second.ID, res.Winner.ID)

	got := f.reload(t, listing.ID)
	assert.Equal(t, domain.ListingEnded, got.Status)
	assert.True(t, got.CurrentPrice.Equal(dec("120")))

	bids := f.bids(t, listing.ID)
	require.Len(t, bids, 2)
	assert.Equal(t, domain.BidWon, bids[second.ID].Status)
	assert.Equal(t, domain.BidLost, bids[first.ID].Status)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, bob, f.notifier.calls[0].bid.CreatedBy)
}

func TestPlaceBid_SellerCannotBid(t *testing.T) {
	f := setupAuctionTest(t)
	listing := f.seedListing(t, nil)

	_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: listing.CreatedBy, Amount: dec("150")})
	assert.ErrorIs(t, err, domain.ErrSelfBidForbidden)

	got := f.reload(t, listing.ID)
	assert.True(t, got.CurrentPrice.Equal(dec("100")))
	assert.Empty(t, f.bids(t, listing.ID))
}

func TestPlaceBid_ExpiredListingIsClosed(t *testing.T) {
	f := setupAuctionTest(t)
	listing := f.seedListing(t, nil)
	f.clock.Advance(time.Hour)

	_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("200")})
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)
	assert.Equal(t, domain.ListingActive, f.reload(t, listing.ID).Status)
}

func TestPlaceBid_DraftAndUnknownListings(t *testing.T) {
	f := setupAuctionTest(t)
	draft := f.seedListing(t, func(l *domain.Listing) { l.Status = domain.ListingDraft })

	_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: draft.ID, BidderID: uuid.New(), Amount: dec("200")})
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	_, err = f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: uuid.New(), BidderID: uuid.New(), Amount: dec("200")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceBid_RejectsFractionalCents(t *testing.T) {
	f := setupAuctionTest(t)
	listing := f.seedListing(t, nil)

	_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("105.001")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.True(t, f.reload(t, listing.ID).CurrentPrice.Equal(dec("100")))
}

func TestPlaceBid_ChecksRunInOrder(t *testing.T) {
	f := setupAuctionTest(t)
	open := f.seedListing(t, nil)
	expired := f.seedListing(t, func(l *domain.Listing) { l.EndDate = f.clock.Now().Add(-time.Minute) })

	cases := []struct {
		name      string
		listingID uuid.UUID
		bidder    uuid.UUID
		amount    decimal.Decimal
		want      error
	}{
		{"unknown listing with zero amount", uuid.New(), uuid.New(), decimal.Zero, domain.ErrNotFound},
		{"expired listing with negative amount", expired.ID, uuid.New(), dec("-5"), domain.ErrAuctionClosed},
		{"expired listing with fractional cents", expired.ID, uuid.New(), dec("0.001"), domain.ErrAuctionClosed},
		{"seller with zero amount", open.ID, open.CreatedBy, decimal.Zero, domain.ErrSelfBidForbidden},
		{"open listing with zero amount", open.ID, uuid.New(), decimal.Zero, domain.ErrBidTooLow},
		{"open listing with negative amount", open.ID, uuid.New(), dec("-5"), domain.ErrBidTooLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: tc.listingID, BidderID: tc.bidder, Amount: tc.amount})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: open.ID, BidderID: uuid.New(), Amount: decimal.Zero})
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.True(t, tooLow.Minimum.Equal(dec("105")), "minimum was %s", tooLow.Minimum)
	assert.Empty(t, f.bids(t, open.ID))
}

// A close that commits after the bidder has read the listing but before its price update must
// turn the bid into AuctionClosed on re-validation, leaving the listing untouched.
func TestPlaceBid_CloseCommitsBetweenReadAndUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auction.db")
	bidderDB := openSharedDB(t, path)
	closerDB := openSharedDB(t, path)
	require.NoError(t, database.AutoMigrate(bidderDB))

	clock := newFakeClock()
	guard := database.Guard{Timeout: 5 * time.Second}
	listing := &domain.Listing{
		Title:          "Vintage Camera",
		StartingPrice:  dec("100"),
		BidIncrement:   dec("5"),
		CurrentPrice:   dec("100"),
		EndDate:        clock.Now().Add(time.Minute),
		Status:         domain.ListingActive,
		CreatedBy:      uuid.New(),
		PaymentMethods: datatypes.NewJSONType(domain.AllPaymentMethods()),
	}
	require.NoError(t, bidderDB.Create(listing).Error)
	var before domain.Listing
	require.NoError(t, bidderDB.Where("id = ?", listing.ID).First(&before).Error)
	standing := &domain.Bid{ListingID: listing.ID, Amount: dec("100"), CreatedBy: uuid.New(), Status: domain.BidActive}
	require.NoError(t, bidderDB.Create(standing).Error)

	notifier := &recordingNotifier{}
	controller := &Controller{
		DB: closerDB, Guard: guard, Notifier: notifier,
		Now: func() time.Time { return clock.Now().Add(2 * time.Minute) },
	}
	acceptor := &Acceptor{DB: bidderDB, Guard: guard, Now: clock.Now}

	var once sync.Once
	var closeRes *CloseResult
	var closeErr error
	require.NoError(t, bidderDB.Callback().Update().Before("gorm:update").Register("test:close_first", func(*gorm.DB) {
		once.Do(func() {
			closeRes, closeErr = controller.CloseAuction(context.Background(), listing.ID)
		})
	}))

	_, err := acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("150")})
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	require.NoError(t, closeErr)
	require.NotNil(t, closeRes)
	assert.True(t, closeRes.Closed)

	var after domain.Listing
	require.NoError(t, closerDB.Where("id = ?", listing.ID).First(&after).Error)
	assert.Equal(t, domain.ListingEnded, after.Status)
	assert.True(t, after.CurrentPrice.Equal(dec("100")), "price moved to %s", after.CurrentPrice)
	assert.Equal(t, before.Version+1, after.Version)

	var bids []domain.Bid
	require.NoError(t, closerDB.Where("listing_id = ?", listing.ID).Find(&bids).Error)
	require.Len(t, bids, 1)
	assert.Equal(t, standing.ID, bids[0].ID)
	assert.Equal(t, domain.BidWon, bids[0].Status)
	assert.Equal(t, 1, notifier.count())
}

func TestPlaceBid_PriceNeverDecreases(t *testing.T) {
	f := setupAuctionTest(t)
	listing := f.seedListing(t, nil)
	amounts := []string{"105", "104", "110", "112", "130", "120", "135", "135", "200.50"}

	prev := listing.CurrentPrice
	for _, a := range amounts {
		_, err := f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec(a)})
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrBidTooLow, "amount %s", a)
		}
		cur := f.reload(t, listing.ID).CurrentPrice
		assert.True(t, cur.GreaterThanOrEqual(prev), "price went from %s to %s", prev, cur)
		prev = cur
	}
	assert.True(t, prev.Equal(dec("200.50")))
}

func TestPlaceBid_ConcurrentSameAmountOnlyOneWins(t *testing.T) {
	f := setupAuctionTest(t)
	listing := f.seedListing(t, nil)

	const bidders = 10
	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.acceptor.PlaceBid(context.Background(), PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("105")})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		var tooLow *domain.BidTooLowError
		require.True(t, errors.As(err, &tooLow), "unexpected error %v", err)
		assert.True(t, tooLow.Minimum.Equal(dec("110")))
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, f.bids(t, listing.ID), 1)
	assert.True(t, f.reload(t, listing.ID).CurrentPrice.Equal(dec("105")))
}

func TestBuyNow_EndsAuctionAndLosesStandingBids(t *testing.T) {
	f := setupAuctionTest(t)
	ctx := context.Background()
	listing := f.seedListing(t, func(l *domain.Listing) { l.BuyNowPrice = decimal.NewNullDecimal(dec("500")) })

	a, err := f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("105")})
	require.NoError(t, err)
	c, err := f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("150")})
	require.NoError(t, err)

	buyer := uuid.New()
	won, err := f.acceptor.BuyNow(ctx, listing.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, domain.BidWon, won.Status)
	assert.True(t, won.Amount.Equal(dec("500")))

	got := f.reload(t, listing.ID)
	assert.Equal(t, domain.ListingSold, got.Status)
	assert.True(t, got.CurrentPrice.Equal(dec("500")))

	bids := f.bids(t, listing.ID)
	assert.Equal(t, domain.BidLost, bids[a.ID].Status)
	assert.Equal(t, domain.BidLost, bids[c.ID].Status)
	assert.Equal(t, domain.BidWon, bids[won.ID].Status)
	assert.Equal(t, 1, f.notifier.count())

	_, err = f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: listing.ID, BidderID: uuid.New(), Amount: dec("600")})
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	f.clock.Advance(2 * time.Hour)
	res, err := f.controller.CloseAuction(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.Equal(t, domain.ListingSold, f.reload(t, listing.ID).Status)
	assert.Equal(t, 1, f.notifier.count())
}

func TestBuyNow_Unavailable(t *testing.T) {
	f := setupAuctionTest(t)
	ctx := context.Background()

	noBuyNow := f.seedListing(t, nil)
	_, err := f.acceptor.BuyNow(ctx, noBuyNow.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBuyNowUnavailable)
	assert.ErrorIs(t, err, domain.ErrValidation)

	overtaken := f.seedListing(t, func(l *domain.Listing) { l.BuyNowPrice = decimal.NewNullDecimal(dec("150")) })
	_, err = f.acceptor.PlaceBid(ctx, PlaceBidInput{ListingID: overtaken.ID, BidderID: uuid.New(), Amount: dec("150")})
	require.NoError(t, err)
	_, err = f.acceptor.BuyNow(ctx, overtaken.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBuyNowUnavailable)

	own := f.seedListing(t, func(l *domain.Listing) { l.BuyNowPrice = decimal.NewNullDecimal(dec("300")) })
	_, err = f.acceptor.BuyNow(ctx, own.ID, own.CreatedBy)
	assert.ErrorIs(t, err, domain.ErrSelfBidForbidden)
	assert.Equal(t, domain.ListingActive, f.reload(t, own.ID).Status)
}
