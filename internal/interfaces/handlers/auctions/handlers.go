package auctions

import (
	"trubid-backend/internal/application/auction"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Acceptor   *auction.Acceptor
	Controller *auction.Controller
}

type buyNowRequest struct {
	ListingID string `json:"listing_id"`
}

// BuyNow POST /api/v1/auctions/buy-now
func (h *Handlers) BuyNow(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var req buyNowRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "listing_id is required", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}

	bid, err := h.Acceptor.BuyNow(c.Context(), listingID, actor.UserID)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Item purchased", fiber.Map{"bid": bid}, nil)
}

// CloseAuction POST /api/v1/auctions/close/:listing_id. Closing is idempotent; listings that are
// not yet expired come back with closed=false.
func (h *Handlers) CloseAuction(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}
	res, err := h.Controller.CloseAuction(c.Context(), listingID)
	if err != nil {
		return apierr.Respond(c, err)
	}
	msg := "Auction closed"
	if !res.Closed {
		msg = "Auction not closed"
	}
	return response.Success(c, msg, res, nil)
}
