package listingevents

import (
	"strings"

	lesvc "trubid-backend/internal/application/listingevents"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *lesvc.Service
}

// GetListingEvents GET /api/v1/listing-events/:listing_id?type=BID_PLACED,CLOSED
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}
	var types []string
	for _, t := range strings.Split(c.Query("type"), ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	events, err := h.Service.GetListingEvents(c.Context(), listingID, actor.UserID, actor.IsAdmin(), types...)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Listing events retrieved", fiber.Map{"events": events}, fiber.Map{"count": len(events)})
}
