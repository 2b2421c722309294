package listings

import (
	"time"

	listsvc "trubid-backend/internal/application/listings"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *listsvc.Service
}

type createListingRequest struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	Condition      string                 `json:"condition"`
	StartingPrice  decimal.Decimal        `json:"starting_price"`
	BidIncrement   decimal.Decimal        `json:"bid_increment"`
	BuyNowPrice    decimal.NullDecimal    `json:"buy_now_price"`
	EndDate        time.Time              `json:"end_date"`
	Images         []string               `json:"images"`
	PaymentMethods *domain.PaymentMethods `json:"payment_methods"`
	Draft          bool                   `json:"draft"`
}

type editListingRequest struct {
	Title          *string                `json:"title"`
	Description    *string                `json:"description"`
	Category       *string                `json:"category"`
	Condition      *string                `json:"condition"`
	Images         *[]string              `json:"images"`
	PaymentMethods *domain.PaymentMethods `json:"payment_methods"`
	StartingPrice  *decimal.Decimal       `json:"starting_price"`
	BidIncrement   *decimal.Decimal       `json:"bid_increment"`
	BuyNowPrice    *decimal.Decimal       `json:"buy_now_price"`
	ClearBuyNow    bool                   `json:"clear_buy_now"`
	EndDate        *time.Time             `json:"end_date"`
}

func toActor(a middleware.Actor) listsvc.Actor {
	return listsvc.Actor{ID: a.UserID, Admin: a.IsAdmin()}
}

func listingID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		_ = response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateListing POST /api/v1/listings/create-listing
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	listing, err := h.Service.CreateListing(c.Context(), listsvc.CreateListingInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		StartingPrice:  req.StartingPrice,
		BidIncrement:   req.BidIncrement,
		BuyNowPrice:    req.BuyNowPrice,
		EndDate:        req.EndDate,
		Images:         req.Images,
		PaymentMethods: req.PaymentMethods,
		Draft:          req.Draft,
		SellerID:       actor.UserID,
	})
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"listing": listing}, nil)
}

// GetAllListings GET /api/v1/listings/get-all-listings?status=&search=&sort=
func (h *Handlers) GetAllListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetAllListings(c.Context(), listsvc.ListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listings retrieved", fiber.Map{"listings": listings}, fiber.Map{"count": len(listings)})
}

// GetActiveListings GET /api/v1/listings/get-active-listings?search=&category=
func (h *Handlers) GetActiveListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetActiveListings(c.Context(), listsvc.ActiveFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Active listings retrieved", fiber.Map{"listings": listings}, fiber.Map{"count": len(listings)})
}

// GetMyListings GET /api/v1/listings/get-my-listings
func (h *Handlers) GetMyListings(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	listings, err := h.Service.GetMyListings(c.Context(), actor.UserID)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listings retrieved", fiber.Map{"listings": listings}, fiber.Map{"count": len(listings)})
}

// GetListing GET /api/v1/listings/get-listing/:listing_id. Anonymous viewers see published listings.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return nil
	}
	var viewer listsvc.Actor
	if actor, ok := middleware.GetActor(c); ok {
		viewer = toActor(actor)
	}
	detail, err := h.Service.GetListing(c.Context(), id, viewer)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listing retrieved", fiber.Map{"listing": detail}, nil)
}

// EditListing PUT /api/v1/listings/edit-listing/:listing_id
func (h *Handlers) EditListing(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	id, ok := listingID(c)
	if !ok {
		return nil
	}
	var req editListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	in := listsvc.EditListingInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		Images:         req.Images,
		PaymentMethods: req.PaymentMethods,
		StartingPrice:  req.StartingPrice,
		BidIncrement:   req.BidIncrement,
		EndDate:        req.EndDate,
	}
	switch {
	case req.ClearBuyNow:
		in.BuyNowPrice = &decimal.NullDecimal{}
	case req.BuyNowPrice != nil:
		in.BuyNowPrice = &decimal.NullDecimal{Decimal: *req.BuyNowPrice, Valid: true}
	}

	listing, err := h.Service.EditListing(c.Context(), id, toActor(actor), in)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listing updated successfully", fiber.Map{"listing": listing}, nil)
}

// PublishListing POST /api/v1/listings/publish-listing/:listing_id
func (h *Handlers) PublishListing(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	id, ok := listingID(c)
	if !ok {
		return nil
	}
	listing, err := h.Service.PublishListing(c.Context(), id, toActor(actor))
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listing published", fiber.Map{"listing": listing}, nil)
}

// DeleteListing DELETE /api/v1/listings/delete-listing/:listing_id
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	id, ok := listingID(c)
	if !ok {
		return nil
	}
	if err := h.Service.DeleteListing(c.Context(), id, toActor(actor)); err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listing deleted", fiber.Map{"listing_id": id}, nil)
}

// DuplicateListing POST /api/v1/listings/duplicate-listing/:listing_id
func (h *Handlers) DuplicateListing(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	id, ok := listingID(c)
	if !ok {
		return nil
	}
	listing, err := h.Service.DuplicateListing(c.Context(), id, toActor(actor))
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Listing duplicated", fiber.Map{"listing": listing}, nil)
}
