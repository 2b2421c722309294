package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type wonCall struct {
	listing domain.Listing
	bid     domain.Bid
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []wonCall
	err   error
}

func (r *recordingNotifier) AuctionWon(ctx context.Context, listing *domain.Listing, winning *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, wonCall{listing: *listing, bid: *winning})
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type auctionFixture struct {
	db         *gorm.DB
	clock      *fakeClock
	notifier   *recordingNotifier
	acceptor   *Acceptor
	controller *Controller
}

func setupAuctionTest(t *testing.T) *auctionFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	clock := newFakeClock()
	notifier := &recordingNotifier{}
	guard := database.Guard{Timeout: 5 * time.Second}
	return &auctionFixture{
		db:       db,
		clock:    clock,
		notifier: notifier,
		acceptor: &Acceptor{DB: db, Guard: guard, Notifier: notifier, Now: clock.Now},
		controller: &Controller{
			DB: db, Guard: guard, Notifier: notifier, Now: clock.Now,
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedListing stores an active 100.00 / 5.00 listing ending in one hour.
func (f *auctionFixture) seedListing(t *testing.T, mutate func(l *domain.Listing)) *domain.Listing {
	l := &domain.Listing{
		Title:          "Vintage Camera",
		Category:       "Electronics",
		StartingPrice:  dec("100"),
		BidIncrement:   dec("5"),
		CurrentPrice:   dec("100"),
		EndDate:        f.clock.Now().Add(time.Hour),
		Status:         domain.ListingActive,
		CreatedBy:      uuid.New(),
		PaymentMethods: datatypes.NewJSONType(domain.AllPaymentMethods()),
	}
	if mutate != nil {
		mutate(l)
	}
	require.NoError(t, f.db.Create(l).Error)
	return l
}

func (f *auctionFixture) reload(t *testing.T, id uuid.UUID) *domain.Listing {
	var l domain.Listing
	require.NoError(t, f.db.Where("id = ?", id).First(&l).Error)
	return &l
}

func (f *auctionFixture) bids(t *testing.T, listingID uuid.UUID) map[uuid.UUID]domain.Bid {
	var bids []domain.Bid
	require.NoError(t, f.db.Where("listing_id = ?", listingID).Find(&bids).Error)
	out := make(map[uuid.UUID]domain.Bid, len(bids))
	for _, b := range bids {
		out[b.ID] = b
	}
	return out
}

// openSharedDB opens one connection to a sqlite file so two handles can race on the same rows.
func openSharedDB(t *testing.T, path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}
