package apierr

import (
	"errors"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Respond writes err in the standard error envelope, choosing the status from the domain error
// taxonomy. Unknown errors become a logged 500 with a generic message.
func Respond(c *fiber.Ctx, err error) error {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return response.Error(c, tooLow.Error(), fiber.StatusBadRequest, fiber.Map{
			"minimum_bid": tooLow.Minimum.StringFixed(2),
		})
	}
	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		return response.Error(c, invalid.Message, fiber.StatusBadRequest, fiber.Map{"field": invalid.Field})
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, domain.ErrAuctionClosed):
		return response.Error(c, domain.ErrAuctionClosed.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, domain.ErrSelfBidForbidden), errors.Is(err, domain.ErrForbidden):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, domain.ErrValidation):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrStorageUnavailable):
		return response.Error(c, domain.ErrStorageUnavailable.Error(), fiber.StatusServiceUnavailable, nil)
	}

	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// Actor returns the session actor or writes 401.
func Actor(c *fiber.Ctx) (middleware.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		_ = response.Unauthorized(c, "Unauthorized")
	}
	return actor, ok
}
