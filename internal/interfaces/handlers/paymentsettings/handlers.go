package paymentsettings

import (
	settingssvc "trubid-backend/internal/application/paymentsettings"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *settingssvc.Service
}

// ViewSettings GET /api/v1/payment-settings/view-settings. data.settings is null until saved.
func (h *Handlers) ViewSettings(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	settings, err := h.Service.GetForSeller(c.Context(), actor.UserID)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Payment settings retrieved", fiber.Map{"settings": settings}, nil)
}

// UpdateSettings PUT /api/v1/payment-settings/update-settings
func (h *Handlers) UpdateSettings(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}
	var in settingssvc.SettingsInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	settings, err := h.Service.Upsert(c.Context(), actor.UserID, in)
	if err != nil {
		return apierr.Respond(c, err)
	}
	return response.Success(c, "Payment settings saved", fiber.Map{"settings": settings}, nil)
}
