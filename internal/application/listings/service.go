package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trubid-backend/internal/application/auction"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"
	"trubid-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxEditAttempts = 8

var errListingMoved = errors.New("listing changed concurrently")

// CreationNotifier confirms a new listing to its seller.
type CreationNotifier interface {
	ListingCreated(ctx context.Context, listing *domain.Listing, seller *domain.User) error
}

// UserLookup resolves the seller for the creation email.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	DB       *gorm.DB
	Guard    database.Guard
	Notifier CreationNotifier
	Users    UserLookup
	Now      func() time.Time
}

// Actor is the caller of a mutating listing operation.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type CreateListingInput struct {
	Title          string
	Description    string
	Category       string
	Condition      string
	StartingPrice  decimal.Decimal
	BidIncrement   decimal.Decimal
	BuyNowPrice    decimal.NullDecimal
	EndDate        time.Time
	Images         []string
	PaymentMethods *domain.PaymentMethods
	Draft          bool
	SellerID       uuid.UUID
}

func validatePricing(start, increment decimal.Decimal, buyNow decimal.NullDecimal) error {
	if !validation.IsValidMoney(start) {
		return domain.Invalid("starting_price", "Starting price must be at least $0.01 with at most two decimals")
	}
	if !validation.IsValidMoney(increment) {
		return domain.Invalid("bid_increment", "Bid increment must be at least $0.01 with at most two decimals")
	}
	if buyNow.Valid {
		if !validation.IsValidMoney(buyNow.Decimal) {
			return domain.Invalid("buy_now_price", "Buy now price must be at least $0.01 with at most two decimals")
		}
		if !buyNow.Decimal.GreaterThan(start) {
			return domain.Invalid("buy_now_price", "Buy now price must be higher than starting price")
		}
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) > domain.MaxListingImages {
		return domain.Invalid("images", fmt.Sprintf("A listing can have at most %d images", domain.MaxListingImages))
	}
	for _, img := range images {
		if !validation.IsValidImageURL(img) {
			return domain.Invalid("images", "Images must be http(s) URLs")
		}
	}
	return nil
}

func (s *Service) validateEndDate(end time.Time) error {
	if end.IsZero() || !end.After(s.now()) {
		return domain.Invalid("end_date", "End date must be in the future")
	}
	return nil
}

// CreateListing validates and stores a new listing with its CREATED event, then emails the seller.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Invalid("title", "Title is required")
	}
	if err := validatePricing(in.StartingPrice, in.BidIncrement, in.BuyNowPrice); err != nil {
		return nil, err
	}
	if err := s.validateEndDate(in.EndDate); err != nil {
		return nil, err
	}
	if err := validateImages(in.Images); err != nil {
		return nil, err
	}
	methods := domain.AllPaymentMethods()
	if in.PaymentMethods != nil {
		if !in.PaymentMethods.Any() {
			return nil, domain.Invalid("payment_methods", "Select at least one payment method")
		}
		methods = *in.PaymentMethods
	}
	status := domain.ListingActive
	if in.Draft {
		status = domain.ListingDraft
	}

	listing := &domain.Listing{
		ID:             uuid.New(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Category:       strings.TrimSpace(in.Category),
		Condition:      strings.TrimSpace(in.Condition),
		StartingPrice:  in.StartingPrice,
		BidIncrement:   in.BidIncrement,
		BuyNowPrice:    in.BuyNowPrice,
		CurrentPrice:   in.StartingPrice,
		EndDate:        in.EndDate.UTC(),
		Status:         status,
		PaymentMethods: datatypes.NewJSONType(methods),
		Images:         datatypes.JSONSlice[string](in.Images),
		CreatedBy:      in.SellerID,
		Version:        1,
	}
	err := s.Guard.Run(ctx, "create listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(listing).Error; err != nil {
				return err
			}
			return tx.Create(domain.NewListingEvent(listing.ID, domain.EventCreated, &in.SellerID, map[string]interface{}{
				"starting_price": listing.StartingPrice.StringFixed(2),
				"status":         listing.Status,
			})).Error
		})
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}
	log.Info().Str("listing_id", listing.ID.String()).Str("status", string(listing.Status)).Msg("listing created")
	s.notifyCreated(ctx, listing)
	return listing, nil
}

func (s *Service) notifyCreated(ctx context.Context, listing *domain.Listing) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	seller, err := s.Users.FindByID(ctx, listing.CreatedBy)
	if err == nil {
		err = s.Notifier.ListingCreated(ctx, listing, seller)
	}
	if err != nil {
		log.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("listing created notification not sent")
	}
}

// ListingDetail is a listing with its bids, newest first.
type ListingDetail struct {
	*domain.Listing
	Bids       []domain.Bid `json:"bids"`
	MinimumBid string       `json:"minimum_bid"`
	Expired    bool         `json:"expired"`
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := s.Guard.Run(ctx, "load listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing returns the listing and its bids. Drafts are visible to their seller and admins only.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID, viewer Actor) (*ListingDetail, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == domain.ListingDraft && l.CreatedBy != viewer.ID && !viewer.Admin {
		return nil, domain.ErrNotFound
	}
	var bids []domain.Bid
	err = s.Guard.Run(ctx, "list bids", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Where("listing_id = ?", id).
			Order("created_at DESC").Order("id DESC").Find(&bids).Error
	})
	if err != nil {
		return nil, err
	}
	return &ListingDetail{
		Listing:    l,
		Bids:       bids,
		MinimumBid: l.MinimumBid().StringFixed(2),
		Expired:    auction.IsExpired(l, s.now()),
	}, nil
}

type ListFilter struct {
	Status string
	Search string
	Sort   string
}

var sortOrders = map[string]string{
	"":            "created_at DESC",
	"newest":      "created_at DESC",
	"oldest":      "created_at ASC",
	"ending_soon": "end_date ASC",
	"price_low":   "current_price ASC",
	"price_high":  "current_price DESC",
}

// GetAllListings is the admin listing view with optional status filter, title search and sort.
func (s *Service) GetAllListings(ctx context.Context, f ListFilter) ([]domain.Listing, error) {
	order, ok := sortOrders[f.Sort]
	if !ok {
		return nil, domain.Invalid("sort", "Unknown sort order")
	}
	if f.Status != "" && f.Status != "all" {
		switch domain.ListingStatus(f.Status) {
		case domain.ListingDraft, domain.ListingActive, domain.ListingEnded, domain.ListingSold:
		default:
			return nil, domain.Invalid("status", "Unknown listing status")
		}
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))

	var out []domain.Listing
	err := s.Guard.Run(ctx, "list listings", func(ctx context.Context) error {
		q := s.DB.WithContext(ctx).Model(&domain.Listing{})
		if f.Status != "" && f.Status != "all" {
			q = q.Where("status = ?", f.Status)
		}
		if term != "" {
			q = q.Where("LOWER(title) LIKE ?", "%"+term+"%")
		}
		out = nil
		return q.Order(order).Find(&out).Error
	})
	return out, err
}

// ActiveFilter narrows the public listing page. Search matches title or description, case
// insensitive; an empty or "all" category matches every category.
type ActiveFilter struct {
	Search   string
	Category string
}

// GetActiveListings returns open, unexpired listings ending soonest first.
func (s *Service) GetActiveListings(ctx context.Context, f ActiveFilter) ([]domain.Listing, error) {
	now := s.now()
	term := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)
	var out []domain.Listing
	err := s.Guard.Run(ctx, "list active listings", func(ctx context.Context) error {
		q := s.DB.WithContext(ctx).Where("status = ? AND end_date > ?", domain.ListingActive, now)
		if term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
		}
		if category != "" && !strings.EqualFold(category, "all") {
			q = q.Where("LOWER(category) = ?", strings.ToLower(category))
		}
		out = nil
		return q.Order("end_date ASC").Find(&out).Error
	})
	return out, err
}

// GetMyListings returns the seller's listings, newest first.
func (s *Service) GetMyListings(ctx context.Context, sellerID uuid.UUID) ([]domain.Listing, error) {
	var out []domain.Listing
	err := s.Guard.Run(ctx, "list seller listings", func(ctx context.Context) error {
		out = nil
		return s.DB.WithContext(ctx).Where("created_by = ?", sellerID).Order("created_at DESC").Find(&out).Error
	})
	return out, err
}

func authorize(l *domain.Listing, actor Actor) error {
	if l.CreatedBy != actor.ID && !actor.Admin {
		return domain.ErrForbidden
	}
	return nil
}

// EditListingInput holds the fields to change; nil means unchanged.
type EditListingInput struct {
	Title          *string
	Description    *string
	Category       *string
	Condition      *string
	Images         *[]string
	PaymentMethods *domain.PaymentMethods
	StartingPrice  *decimal.Decimal
	BidIncrement   *decimal.Decimal
	BuyNowPrice    *decimal.NullDecimal
	EndDate        *time.Time
}

func (in EditListingInput) touchesLockedFields() bool {
	return in.StartingPrice != nil || in.BidIncrement != nil || in.BuyNowPrice != nil || in.EndDate != nil
}

// apply writes the edit onto l and returns the changed column values.
func (s *Service) apply(l *domain.Listing, in EditListingInput, hasBids bool) (map[string]interface{}, error) {
	if l.Terminal() {
		return nil, domain.ErrAuctionClosed
	}
	if hasBids && in.touchesLockedFields() {
		return nil, domain.ErrListingLocked
	}
	upd := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.Invalid("title", "Title is required")
		}
		upd["title"] = title
	}
	if in.Description != nil {
		upd["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		upd["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Condition != nil {
		upd["condition"] = strings.TrimSpace(*in.Condition)
	}
	if in.Images != nil {
		if err := validateImages(*in.Images); err != nil {
			return nil, err
		}
		upd["images"] = datatypes.JSONSlice[string](*in.Images)
	}
	if in.PaymentMethods != nil {
		if !in.PaymentMethods.Any() {
			return nil, domain.Invalid("payment_methods", "Select at least one payment method")
		}
		upd["payment_methods"] = datatypes.NewJSONType(*in.PaymentMethods)
	}

	start, increment, buyNow := l.StartingPrice, l.BidIncrement, l.BuyNowPrice
	if in.StartingPrice != nil {
		start = *in.StartingPrice
	}
	if in.BidIncrement != nil {
		increment = *in.BidIncrement
	}
	if in.BuyNowPrice != nil {
		buyNow = *in.BuyNowPrice
	}
	if in.StartingPrice != nil || in.BidIncrement != nil || in.BuyNowPrice != nil {
		if err := validatePricing(start, increment, buyNow); err != nil {
			return nil, err
		}
		upd["starting_price"] = start
		upd["current_price"] = start
		upd["bid_increment"] = increment
		upd["buy_now_price"] = buyNow
	}
	if in.EndDate != nil {
		if err := s.validateEndDate(*in.EndDate); err != nil {
			return nil, err
		}
		upd["end_date"] = in.EndDate.UTC()
	}
	if len(upd) == 0 {
		return nil, domain.Invalid("listing", "No valid update fields provided")
	}
	return upd, nil
}

// EditListing updates a draft or active listing. Pricing and end date are locked once a bid exists.
func (s *Service) EditListing(ctx context.Context, id uuid.UUID, actor Actor, in EditListingInput) (*domain.Listing, error) {
	for attempt := 0; attempt < maxEditAttempts; attempt++ {
		l, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(l, actor); err != nil {
			return nil, err
		}
		var bidCount int64
		err = s.Guard.Run(ctx, "count bids", func(ctx context.Context) error {
			return s.DB.WithContext(ctx).Model(&domain.Bid{}).Where("listing_id = ?", id).Count(&bidCount).Error
		})
		if err != nil {
			return nil, err
		}
		upd, err := s.apply(l, in, bidCount > 0)
		if err != nil {
			return nil, err
		}

		changed := make([]string, 0, len(upd))
		for k := range upd {
			changed = append(changed, k)
		}
		upd["version"] = gorm.Expr("version + 1")
		err = s.Guard.Run(ctx, "edit listing", func(ctx context.Context) error {
			return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				res := tx.Model(&domain.Listing{}).
					Where("id = ? AND version = ? AND status IN ?", id, l.Version, []domain.ListingStatus{domain.ListingDraft, domain.ListingActive}).
					Updates(upd)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errListingMoved
				}
				return tx.Create(domain.NewListingEvent(id, domain.EventUpdated, &actor.ID, map[string]interface{}{
					"fields": changed,
				})).Error
			})
		})
		if errors.Is(err, errListingMoved) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.load(ctx, id)
	}
	return nil, fmt.Errorf("edit listing: %w", domain.ErrStorageUnavailable)
}

// PublishListing moves a draft to active.
func (s *Service) PublishListing(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(l, actor); err != nil {
		return nil, err
	}
	if l.Status != domain.ListingDraft {
		return nil, domain.Invalid("status", "Only draft listings can be published")
	}
	if err := s.validateEndDate(l.EndDate); err != nil {
		return nil, err
	}
	err = s.Guard.Run(ctx, "publish listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.Listing{}).Where("id = ? AND status = ?", id, domain.ListingDraft).
				Updates(map[string]interface{}{"status": domain.ListingActive, "version": gorm.Expr("version + 1")})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.Invalid("status", "Only draft listings can be published")
			}
			return tx.Create(domain.NewListingEvent(id, domain.EventPublished, &actor.ID, nil)).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// DeleteListing removes the listing and its bids in one transaction.
func (s *Service) DeleteListing(ctx context.Context, id uuid.UUID, actor Actor) error {
	l, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(l, actor); err != nil {
		return err
	}
	var removedBids int64
	err = s.Guard.Run(ctx, "delete listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("listing_id = ?", id).Delete(&domain.Bid{})
			if res.Error != nil {
				return res.Error
			}
			removedBids = res.RowsAffected
			if err := tx.Where("id = ?", id).Delete(&domain.Listing{}).Error; err != nil {
				return err
			}
			return tx.Create(domain.NewListingEvent(id, domain.EventDeleted, &actor.ID, map[string]interface{}{
				"title":        l.Title,
				"removed_bids": removedBids,
			})).Error
		})
	})
	if err != nil {
		return err
	}
	log.Info().Str("listing_id", id.String()).Int64("removed_bids", removedBids).Msg("listing deleted")
	return nil
}

// DuplicateListing copies a listing as a new active auction ending one month from now.
func (s *Service) DuplicateListing(ctx context.Context, id uuid.UUID, actor Actor) (*domain.Listing, error) {
	src, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := &domain.Listing{
		ID:             uuid.New(),
		Title:          src.Title + " (Copy)",
		Description:    src.Description,
		Category:       src.Category,
		Condition:      src.Condition,
		StartingPrice:  src.StartingPrice,
		BidIncrement:   src.BidIncrement,
		BuyNowPrice:    src.BuyNowPrice,
		CurrentPrice:   src.StartingPrice,
		EndDate:        s.now().AddDate(0, 1, 0),
		Status:         domain.ListingActive,
		PaymentMethods: src.PaymentMethods,
		Images:         append(datatypes.JSONSlice[string]{}, src.Images...),
		CreatedBy:      actor.ID,
		Version:        1,
	}
	err = s.Guard.Run(ctx, "duplicate listing", func(ctx context.Context) error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(dup).Error; err != nil {
				return err
			}
			return tx.Create(domain.NewListingEvent(dup.ID, domain.EventDuplicated, &actor.ID, map[string]interface{}{
				"source_listing_id": src.ID.String(),
			})).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}
