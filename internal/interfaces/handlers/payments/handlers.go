package payments

import (
	"errors"

	paysvc "trubid-backend/internal/application/payments"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *paysvc.Service
}

type submitPaymentRequest struct {
	ListingID     string `json:"listing_id"`
	PaymentMethod string `json:"payment_method"`
	BuyerContact  string `json:"buyer_contact"`
	Notes         string `json:"notes"`
}

func respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, paysvc.ErrNotWinner):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, paysvc.ErrPaymentRequested):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return apierr.Respond(c, err)
}

// Instructions GET /api/v1/payments/instructions/:listing_id
func (h *Handlers) Instructions(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}
	inst, err := h.Service.Instructions(c.Context(), listingID, actor.UserID)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Payment instructions retrieved", inst, nil)
}

// SubmitPayment POST /api/v1/payments/submit-payment
func (h *Handlers) SubmitPayment(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var req submitPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}
	p, err := h.Service.SubmitPaymentRequest(c.Context(), paysvc.SubmitPaymentInput{
		ListingID:     listingID,
		BuyerID:       actor.UserID,
		PaymentMethod: req.PaymentMethod,
		BuyerContact:  req.BuyerContact,
		Notes:         req.Notes,
	})
	if err != nil {
		return respond(c, err)
	}
	return response.SuccessCreated(c, "Payment request submitted", fiber.Map{"payment": p}, nil)
}

// ListPayments GET /api/v1/payments/list-payments
func (h *Handlers) ListPayments(c *fiber.Ctx) error {
	payments, err := h.Service.List(c.Context())
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Payments retrieved", fiber.Map{"payments": payments}, fiber.Map{"count": len(payments)})
}
