package listings

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCreationNotifier struct {
	listings []uuid.UUID
	err      error
}

func (f *fakeCreationNotifier) ListingCreated(ctx context.Context, listing *domain.Listing, seller *domain.User) error {
	f.listings = append(f.listings, listing.ID)
	return f.err
}

type fakeUsers struct{}

func (fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return &domain.User{UserID: id, Email: "seller@example.com"}, nil
}

func setupListings(t *testing.T) (*Service, *fakeCreationNotifier) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	n := &fakeCreationNotifier{}
	return &Service{
		DB:       db,
		Guard:    database.Guard{Timeout: 5 * time.Second},
		Notifier: n,
		Users:    fakeUsers{},
		Now:      func() time.Time { return testNow },
	}, n
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInput(seller uuid.UUID) CreateListingInput {
	return CreateListingInput{
		Title:         "  Vintage Camera ",
		Category:      "Electronics",
		StartingPrice: d("100"),
		BidIncrement:  d("5"),
		EndDate:       testNow.Add(48 * time.Hour),
		Images:        []string{"https://cdn.test/a.jpg"},
		SellerID:      seller,
	}
}

func eventTypes(t *testing.T, db *gorm.DB, listingID uuid.UUID) []string {
	var events []domain.ListingEvent
	require.NoError(t, db.Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error)
	var out []string
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func TestCreateListing(t *testing.T) {
	s, n := setupListings(t)
	seller := uuid.New()

	l, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	assert.Equal(t, "Vintage Camera", l.Title)
	assert.Equal(t, domain.ListingActive, l.Status)
	assert.True(t, l.CurrentPrice.Equal(d("100")))
	assert.Equal(t, domain.AllPaymentMethods(), l.PaymentMethods.Data())
	assert.Equal(t, []uuid.UUID{l.ID}, n.listings)
	assert.Equal(t, []string{domain.EventCreated}, eventTypes(t, s.DB, l.ID))
}

func TestCreateListing_NotificationFailureIsIgnored(t *testing.T) {
	s, n := setupListings(t)
	n.err = errors.New("mail down")
	_, err := s.CreateListing(context.Background(), validInput(uuid.New()))
	assert.NoError(t, err)
}

func TestCreateListing_Validation(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	cases := map[string]func(in *CreateListingInput){
		"title":           func(in *CreateListingInput) { in.Title = " " },
		"starting_price":  func(in *CreateListingInput) { in.StartingPrice = d("0") },
		"bid_increment":   func(in *CreateListingInput) { in.BidIncrement = d("0.005") },
		"buy_now_price":   func(in *CreateListingInput) { in.BuyNowPrice = decimal.NewNullDecimal(d("100")) },
		"end_date":        func(in *CreateListingInput) { in.EndDate = testNow },
		"images":          func(in *CreateListingInput) { in.Images = make([]string, 9) },
		"payment_methods": func(in *CreateListingInput) { in.PaymentMethods = &domain.PaymentMethods{} },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validInput(seller)
			mutate(&in)
			_, err := s.CreateListing(context.Background(), in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestGetListing_BidsNewestFirstAndDraftVisibility(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	l, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	older := &domain.Bid{ListingID: l.ID, Amount: d("105"), CreatedBy: uuid.New(), Status: domain.BidActive, CreatedAt: testNow}
	newer := &domain.Bid{ListingID: l.ID, Amount: d("110"), CreatedBy: uuid.New(), Status: domain.BidActive, CreatedAt: testNow.Add(time.Minute)}
	require.NoError(t, s.DB.Create(older).Error)
	require.NoError(t, s.DB.Create(newer).Error)

	got, err := s.GetListing(context.Background(), l.ID, Actor{ID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, got.Bids, 2)
	assert.Equal(t, newer.ID, got.Bids[0].ID)
	assert.Equal(t, "105.00", got.MinimumBid)
	assert.False(t, got.Expired)

	in := validInput(seller)
	in.Draft = true
	draft, err := s.CreateListing(context.Background(), in)
	require.NoError(t, err)
	_, err = s.GetListing(context.Background(), draft.ID, Actor{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetListing(context.Background(), draft.ID, Actor{ID: seller})
	assert.NoError(t, err)
}

func TestGetAllListings_FilterSearchSort(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	for _, title := range []string{"Red Lamp", "Blue Lamp", "Chair"} {
		in := validInput(seller)
		in.Title = title
		_, err := s.CreateListing(context.Background(), in)
		require.NoError(t, err)
	}
	in := validInput(seller)
	in.Title = "Draft Lamp"
	in.Draft = true
	_, err := s.CreateListing(context.Background(), in)
	require.NoError(t, err)

	got, err := s.GetAllListings(context.Background(), ListFilter{Search: "lamp"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.GetAllListings(context.Background(), ListFilter{Status: "active", Search: "LAMP"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.GetAllListings(context.Background(), ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.GetAllListings(context.Background(), ListFilter{Sort: "random"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetActiveListings(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	open, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	expired, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.Listing{}).Where("id = ?", expired.ID).Update("end_date", testNow.Add(-time.Minute)).Error)

	got, err := s.GetActiveListings(context.Background(), ActiveFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)

	mine, err := s.GetMyListings(context.Background(), seller)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetActiveListings_SearchAndCategory(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	create := func(title, description, category string) uuid.UUID {
		in := validInput(seller)
		in.Title = title
		in.Description = description
		in.Category = category
		l, err := s.CreateListing(context.Background(), in)
		require.NoError(t, err)
		return l.ID
	}
	camera := create("Vintage Camera", "35mm film body", "Electronics")
	lens := create("Prime Lens", "Fits any vintage body", "Electronics")
	chair := create("Oak Chair", "", "Furniture")

	cases := []struct {
		name   string
		filter ActiveFilter
		want   []uuid.UUID
	}{
		{"no filter", ActiveFilter{}, []uuid.UUID{camera, lens, chair}},
		{"title or description", ActiveFilter{Search: "VINTAGE"}, []uuid.UUID{camera, lens}},
		{"description only", ActiveFilter{Search: "35mm"}, []uuid.UUID{camera}},
		{"category", ActiveFilter{Category: "furniture"}, []uuid.UUID{chair}},
		{"all category", ActiveFilter{Category: "all"}, []uuid.UUID{camera, lens, chair}},
		{"search and category", ActiveFilter{Search: "oak", Category: "Electronics"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.GetActiveListings(context.Background(), tc.filter)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(got))
			for _, l := range got {
				ids = append(ids, l.ID)
			}
			assert.ElementsMatch(t, tc.want, ids)
		})
	}
}

func TestEditListing(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	l, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	owner := Actor{ID: seller}

	newStart := d("150")
	got, err := s.EditListing(context.Background(), l.ID, owner, EditListingInput{StartingPrice: &newStart})
	require.NoError(t, err)
	assert.True(t, got.CurrentPrice.Equal(d("150")), "current price tracks starting price while no bids exist")
	assert.Equal(t, int64(2), got.Version)

	_, err = s.EditListing(context.Background(), l.ID, Actor{ID: uuid.New()}, EditListingInput{StartingPrice: &newStart})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, s.DB.Create(&domain.Bid{ListingID: l.ID, Amount: d("155"), CreatedBy: uuid.New(), Status: domain.BidActive}).Error)
	end := testNow.Add(72 * time.Hour)
	_, err = s.EditListing(context.Background(), l.ID, owner, EditListingInput{EndDate: &end})
	assert.ErrorIs(t, err, domain.ErrListingLocked)

	title := "Vintage Camera (mint)"
	got, err = s.EditListing(context.Background(), l.ID, Actor{ID: uuid.New(), Admin: true}, EditListingInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)

	require.NoError(t, s.DB.Model(&domain.Listing{}).Where("id = ?", l.ID).Update("status", domain.ListingEnded).Error)
	_, err = s.EditListing(context.Background(), l.ID, owner, EditListingInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	assert.Equal(t, []string{domain.EventCreated, domain.EventUpdated, domain.EventUpdated}, eventTypes(t, s.DB, l.ID))
}

func TestPublishListing(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	in := validInput(seller)
	in.Draft = true
	draft, err := s.CreateListing(context.Background(), in)
	require.NoError(t, err)

	got, err := s.PublishListing(context.Background(), draft.ID, Actor{ID: seller})
	require.NoError(t, err)
	assert.Equal(t, domain.ListingActive, got.Status)

	_, err = s.PublishListing(context.Background(), draft.ID, Actor{ID: seller})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteListing_RemovesBids(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	l, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	require.NoError(t, s.DB.Create(&domain.Bid{ListingID: l.ID, Amount: d("105"), CreatedBy: uuid.New(), Status: domain.BidActive}).Error)

	assert.ErrorIs(t, s.DeleteListing(context.Background(), l.ID, Actor{ID: uuid.New()}), domain.ErrForbidden)
	require.NoError(t, s.DeleteListing(context.Background(), l.ID, Actor{ID: seller}))

	var bids int64
	s.DB.Model(&domain.Bid{}).Where("listing_id = ?", l.ID).Count(&bids)
	assert.Zero(t, bids)
	_, err = s.GetListing(context.Background(), l.ID, Actor{ID: seller})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, eventTypes(t, s.DB, l.ID), domain.EventDeleted)
}

func TestDuplicateListing(t *testing.T) {
	s, _ := setupListings(t)
	l, err := s.CreateListing(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.Listing{}).Where("id = ?", l.ID).
		Updates(map[string]interface{}{"current_price": d("180"), "status": domain.ListingEnded}).Error)

	admin := Actor{ID: uuid.New(), Admin: true}
	dup, err := s.DuplicateListing(context.Background(), l.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "Vintage Camera (Copy)", dup.Title)
	assert.Equal(t, domain.ListingActive, dup.Status)
	assert.True(t, dup.CurrentPrice.Equal(d("100")))
	assert.Equal(t, admin.ID, dup.CreatedBy)
	assert.Equal(t, testNow.AddDate(0, 1, 0), dup.EndDate)
	assert.Equal(t, []string{domain.EventDuplicated}, eventTypes(t, s.DB, dup.ID))
}

// failReads makes every read of model fail with a dropped connection and counts the attempts.
func failReads(t *testing.T, db *gorm.DB, model string) *int {
	attempts := 0
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_"+model, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == model {
			attempts++
			_ = tx.AddError(driver.ErrBadConn)
		}
	}))
	return &attempts
}

func TestEditListing_BidCountStorageUnavailable(t *testing.T) {
	s, _ := setupListings(t)
	seller := uuid.New()
	l, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)
	attempts := failReads(t, s.DB, "Bid")

	title := "Renamed"
	_, err = s.EditListing(context.Background(), l.ID, Actor{ID: seller}, EditListingInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 2, *attempts)

	var stored domain.Listing
	require.NoError(t, s.DB.Where("id = ?", l.ID).First(&stored).Error)
	assert.Equal(t, "Vintage Camera", stored.Title)
}
