package bids

import (
	"trubid-backend/internal/application/auction"
	bidsvc "trubid-backend/internal/application/bids"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Acceptor *auction.Acceptor
	Service  *bidsvc.Service
}

type placeBidRequest struct {
	ListingID string          `json:"listing_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PlaceBid POST /api/v1/bids/place-bid
func (h *Handlers) PlaceBid(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "listing_id and amount are required", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}

	bid, err := h.Acceptor.PlaceBid(c.Context(), auction.PlaceBidInput{
		ListingID: listingID,
		BidderID:  actor.UserID,
		Amount:    req.Amount,
	})
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Bid placed successfully", fiber.Map{"bid": bid}, nil)
}

// MyBids GET /api/v1/bids/my-bids?filter=active|won|lost|all
func (h *Handlers) MyBids(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	bids, err := h.Service.MyBids(c.Context(), actor.UserID, c.Query("filter"))
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Bids retrieved", fiber.Map{"bids": bids}, fiber.Map{"count": len(bids)})
}

// ReconcileOrphans POST /api/v1/bids/reconcile-orphans
func (h *Handlers) ReconcileOrphans(c *fiber.Ctx) error {
	removed, err := h.Service.ReconcileOrphans(c.Context())
	if err != nil {
		return apierr.Respond(c, err)
	}
	log.Info().Int64("removed", removed).Msg("orphan bids reconciled")
	return response.Success(c, "Orphan bids removed", fiber.Map{"removed": removed}, nil)
}
